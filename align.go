package faceprep

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/makeupnet/faceprep/landmark"
)

// Align rotates the image so the line between its eye centroids
// becomes horizontal. Landmark detection runs on the input; ErrNoFace
// is returned when no face is found. The rotation expands the canvas
// as needed so no content is clipped, filling the new corners black.
// An already level eye line leaves the image unrotated.
func (p *Processor) Align(img image.Image) (*image.NRGBA, error) {
	set, err := p.detect(img)
	if err != nil {
		return nil, err
	}
	angle, err := eyeAngle(set)
	if err != nil {
		return nil, err
	}
	if angle == 0 {
		return imgToNRGBA(img), nil
	}
	return imaging.Rotate(img, angle, color.NRGBA{A: 0xff}), nil
}

// eyeAngle derives the leveling angle in degrees from the slope
// between the left and right eye centroids. With the y axis growing
// downwards a right eye sitting lower than the left yields a positive
// angle, which rotates counter clockwise.
func eyeAngle(set landmark.Set) (float64, error) {
	left, right := set[landmark.LeftEye], set[landmark.RightEye]
	if len(left) == 0 || len(right) == 0 {
		return 0, ErrNoFace
	}
	lc, rc := landmark.Centroid(left), landmark.Centroid(right)

	dy := float64(rc.Y - lc.Y)
	if dy == 0 {
		return 0, nil
	}
	dx := float64(rc.X - lc.X)
	return math.Asin(dy/math.Sqrt(dy*dy+dx*dx)) * 180 / math.Pi, nil
}
