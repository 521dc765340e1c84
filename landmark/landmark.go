// Package landmark locates faces on decoded images and describes them as
// named groups of integer points, the form the extraction pipeline aligns,
// crops and rasterizes against.
package landmark

import (
	"image"
	"math"
	"sort"

	"github.com/makeupnet/faceprep/utils"
)

// Part names reported by the cascade-backed detector. A Set is not
// limited to these: custom detectors may report additional parts.
const (
	LeftEye  = "left_eye"
	RightEye = "right_eye"
	Mouth    = "mouth"
)

// Set maps a named facial part to the ordered points outlining it.
// Every part present in a set holds at least one point.
type Set map[string][]image.Point

// Detector produces one landmark set per face found on the image,
// ordered by detection quality, best match first.
type Detector interface {
	Detect(img image.Image) ([]Set, error)
}

// Centroid returns the arithmetic mean of the point set, rounded to
// the nearest integer pixel coordinates.
func Centroid(points []image.Point) image.Point {
	if len(points) == 0 {
		return image.Point{}
	}
	var sx, sy int
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return image.Point{
		X: int(math.Round(float64(sx) / n)),
		Y: int(math.Round(float64(sy) / n)),
	}
}

// Parts returns the part names in lexical order.
func (s Set) Parts() []string {
	parts := make([]string, 0, len(s))
	for name := range s {
		parts = append(parts, name)
	}
	sort.Strings(parts)
	return parts
}

// Flatten collects the points of every part into a single slice.
func (s Set) Flatten() []image.Point {
	var points []image.Point
	for _, name := range s.Parts() {
		points = append(points, s[name]...)
	}
	return points
}

// BoundingBox returns the minimal axis-aligned rectangle enclosing
// every landmark point of every part. The rectangle follows the
// exclusive-max convention, so the outermost pixels are inside it.
// An empty set yields the zero rectangle.
func (s Set) BoundingBox() image.Rectangle {
	points := s.Flatten()
	if len(points) == 0 {
		return image.Rectangle{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = utils.Min(minX, p.X)
		minY = utils.Min(minY, p.Y)
		maxX = utils.Max(maxX, p.X)
		maxY = utils.Max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
