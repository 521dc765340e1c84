package faceprep

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropToFace re-runs landmark detection on the (aligned) image and
// crops it to the bounding box of all landmark points, expanded by the
// processor's scale factor. Detection runs again here since rotation
// invalidates any previously detected coordinates. The expanded region
// is clipped to the image bounds. ErrNoFace is returned when no face
// is found.
func (p *Processor) CropToFace(img image.Image) (*image.NRGBA, error) {
	set, err := p.detect(img)
	if err != nil {
		return nil, err
	}
	scale := p.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	region := cropRegion(set.BoundingBox(), scale)
	return imaging.Crop(img, region), nil
}

// cropRegion expands the landmark bounding box by the scale factor.
// The extra height is biased upwards to take in the forehead, the
// extra width is split evenly.
func cropRegion(box image.Rectangle, scale float64) image.Rectangle {
	w, h := float64(box.Dx()), float64(box.Dy())
	x := float64(box.Min.X) - (scale-1)*0.5*w
	y := float64(box.Min.Y) - (scale-1)*0.7*h
	return image.Rect(int(x), int(y), int(x+w*scale), int(y+h*scale))
}
