package landmark

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/makeupnet/faceprep/utils"
)

// Landmark strokes are drawn 3px wide in white over a black canvas.
const strokeWidth = 3

var strokeColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Rasterize draws the landmark set as white polylines over a black
// canvas of the given size. The points of each part are connected in
// order; the eye contours are additionally closed back to their first
// point. Points falling outside the canvas are skipped.
func Rasterize(set Set, width, height int) *image.NRGBA {
	canvas := imaging.New(width, height, color.NRGBA{A: 0xff})
	for _, name := range set.Parts() {
		points := set[name]
		if len(points) == 1 {
			stamp(canvas, points[0])
			continue
		}
		for i := 1; i < len(points); i++ {
			drawLine(canvas, points[i-1], points[i])
		}
		if closed(name) && len(points) > 1 {
			drawLine(canvas, points[len(points)-1], points[0])
		}
	}
	return canvas
}

// closed reports whether the part outline loops back onto itself.
func closed(name string) bool {
	return name == LeftEye || name == RightEye
}

// drawLine stamps the stroke along the segment from a to b.
func drawLine(canvas *image.NRGBA, a, b image.Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := utils.Max(utils.Abs(dx), utils.Abs(dy))
	if steps == 0 {
		stamp(canvas, a)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(float64(a.X) + t*float64(dx)))
		y := int(math.Round(float64(a.Y) + t*float64(dy)))
		stamp(canvas, image.Pt(x, y))
	}
}

// stamp paints one stroke-sized dot centered on p.
func stamp(canvas *image.NRGBA, p image.Point) {
	r := strokeWidth / 2
	bounds := canvas.Bounds()
	for y := p.Y - r; y <= p.Y+r; y++ {
		for x := p.X - r; x <= p.X+r; x++ {
			if image.Pt(x, y).In(bounds) {
				canvas.SetNRGBA(x, y, strokeColor)
			}
		}
	}
}
