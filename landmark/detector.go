package landmark

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	pigo "github.com/esimov/pigo/core"

	"github.com/makeupnet/faceprep/utils"
)

// Cascade file layout expected under the cascade directory.
const (
	faceFinderFile = "facefinder"
	puplocFile     = "puploc"
	flpSubdir      = "lps"
)

// Cascade groups of the facial landmark point classifiers. The eye
// cascades resolve one point per side of the face, the mouth cascades
// outline the lip region.
var (
	eyeCascades   = []string{"lp38", "lp42", "lp44", "lp46", "lp312"}
	mouthCascades = []string{"lp81", "lp82", "lp84", "lp93"}
)

// DetectorParams tune the cascade classifier runs.
type DetectorParams struct {
	// MinSize and MaxSize bound the face region size in pixels.
	// A zero MaxSize extends the search up to the full image.
	MinSize int
	MaxSize int
	// ShiftFactor moves the detection window across the image,
	// ScaleFactor grows it between runs.
	ShiftFactor float64
	ScaleFactor float64
	// IoUThreshold merges overlapping detections of the same face.
	IoUThreshold float64
	// QualityThreshold drops detections scored below it.
	QualityThreshold float32
	// Perturbs is the number of perturbation runs of the pupil and
	// landmark point localizers.
	Perturbs int
}

// DefaultDetectorParams returns the parameters the extraction
// pipeline runs with unless configured otherwise.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MinSize:          20,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.2,
		QualityThreshold: 5.0,
		Perturbs:         63,
	}
}

// PigoDetector locates faces and their landmark points using the pigo
// cascade classifiers. The classifiers are read-only after loading,
// so a single detector is safe for concurrent use.
type PigoDetector struct {
	classifier *pigo.Pigo
	puploc     *pigo.PuplocCascade
	flpcs      map[string][]*pigo.FlpCascade
	params     DetectorParams
}

// NewPigoDetector loads the face finder, the pupil localization and the
// facial landmark point cascades from dir. The directory must hold the
// stock pigo cascade layout: facefinder, puploc and an lps subdirectory.
func NewPigoDetector(dir string, params DetectorParams) (*PigoDetector, error) {
	face, err := os.ReadFile(filepath.Join(dir, faceFinderFile))
	if err != nil {
		return nil, fmt.Errorf("reading the face finder cascade: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(face)
	if err != nil {
		return nil, fmt.Errorf("unpacking the face finder cascade: %w", err)
	}

	pl, err := os.ReadFile(filepath.Join(dir, puplocFile))
	if err != nil {
		return nil, fmt.Errorf("reading the pupil localization cascade: %w", err)
	}
	puploc, err := (&pigo.PuplocCascade{}).UnpackCascade(pl)
	if err != nil {
		return nil, fmt.Errorf("unpacking the pupil localization cascade: %w", err)
	}

	flpcs, err := puploc.ReadCascadeDir(filepath.Join(dir, flpSubdir))
	if err != nil {
		return nil, fmt.Errorf("reading the landmark point cascades: %w", err)
	}
	for _, name := range append(append([]string{}, eyeCascades...), mouthCascades...) {
		for _, flpc := range flpcs[name] {
			if flpc.PuplocCascade == nil {
				return nil, fmt.Errorf("landmark point cascade %s failed to unpack", name)
			}
		}
	}

	return &PigoDetector{
		classifier: classifier,
		puploc:     puploc,
		flpcs:      flpcs,
		params:     params,
	}, nil
}

// Detect runs the face classifier over the whole image and assembles one
// landmark set per detection, best scored detection first. Detections
// without a usable pupil pair are dropped, so every returned set carries
// a left_eye and a right_eye part.
func (d *PigoDetector) Detect(img image.Image) ([]Set, error) {
	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	imgParams := pigo.ImageParams{
		Pixels: pigo.RgbToGrayscale(img),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}
	maxSize := d.params.MaxSize
	if maxSize == 0 {
		maxSize = utils.Max(cols, rows)
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: imgParams,
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.params.IoUThreshold)
	sort.Slice(dets, func(i, j int) bool { return dets[i].Q > dets[j].Q })

	var sets []Set
	for _, det := range dets {
		if det.Q < d.params.QualityThreshold {
			continue
		}
		if set := d.assemble(det, imgParams); set != nil {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// assemble localizes the pupils of one detection and gathers the
// landmark points around them. Returns nil when either pupil cannot
// be resolved.
func (d *PigoDetector) assemble(det pigo.Detection, img pigo.ImageParams) Set {
	scale := float32(det.Scale)

	leftSeed := pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col - int(0.175*scale),
		Scale:    scale * 0.25,
		Perturbs: d.params.Perturbs,
	}
	leftPupil := d.puploc.RunDetector(leftSeed, img, 0.0, false)

	rightSeed := pigo.Puploc{
		Row:      det.Row - int(0.075*scale),
		Col:      det.Col + int(0.185*scale),
		Scale:    scale * 0.25,
		Perturbs: d.params.Perturbs,
	}
	rightPupil := d.puploc.RunDetector(rightSeed, img, 0.0, false)

	if !located(leftPupil) || !located(rightPupil) {
		return nil
	}
	left, right := point(leftPupil), point(rightPupil)

	set := Set{
		LeftEye:  []image.Point{left},
		RightEye: []image.Point{right},
	}

	// Each eye cascade resolves a point on either side of the face;
	// the flipped run mirrors it to the opposite side. Points are
	// attributed to the nearest pupil.
	for _, name := range eyeCascades {
		for _, flpc := range d.flpcs[name] {
			for _, flip := range []bool{false, true} {
				flp := flpc.GetLandmarkPoint(leftPupil, rightPupil, img, d.params.Perturbs, flip)
				if !located(flp) {
					continue
				}
				p := point(flp)
				if sqDist(p, left) <= sqDist(p, right) {
					set[LeftEye] = append(set[LeftEye], p)
				} else {
					set[RightEye] = append(set[RightEye], p)
				}
			}
		}
	}

	var mouth []image.Point
	for _, name := range mouthCascades {
		for _, flpc := range d.flpcs[name] {
			flp := flpc.GetLandmarkPoint(leftPupil, rightPupil, img, d.params.Perturbs, false)
			if located(flp) {
				mouth = append(mouth, point(flp))
			}
		}
	}
	for _, flpc := range d.flpcs["lp84"] {
		flp := flpc.GetLandmarkPoint(leftPupil, rightPupil, img, d.params.Perturbs, true)
		if located(flp) {
			mouth = append(mouth, point(flp))
		}
	}
	if len(mouth) > 0 {
		set[Mouth] = mouth
	}

	// Left-to-right point order keeps repeated runs byte-identical.
	for _, name := range set.Parts() {
		sortPoints(set[name])
	}
	return set
}

func located(pl *pigo.Puploc) bool {
	return pl != nil && pl.Row > 0 && pl.Col > 0
}

func point(pl *pigo.Puploc) image.Point {
	return image.Point{X: pl.Col, Y: pl.Row}
}

func sqDist(a, b image.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func sortPoints(points []image.Point) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].X != points[j].X {
			return points[i].X < points[j].X
		}
		return points[i].Y < points[j].Y
	})
}
