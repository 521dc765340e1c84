package faceprep

import (
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/makeupnet/faceprep/landmark"
)

// DefaultScale is the bounding box expansion factor applied by the
// face cropper when no other scale is configured.
const DefaultScale = 1.2

var (
	// ErrNoFace is returned when landmark detection finds no face in
	// the image.
	ErrNoFace = errors.New("no face detected")

	// ErrFormat is returned when an image cannot be encoded into the
	// requested file format.
	ErrFormat = errors.New("unsupported image format")
)

// Processor options
type Processor struct {
	// Detector locates faces and their landmark points.
	Detector landmark.Detector
	// Scale expands the landmark bounding box before cropping.
	Scale float64
}

// NewProcessor returns a Processor running the given detector with the
// default crop scale.
func NewProcessor(d landmark.Detector) *Processor {
	return &Processor{
		Detector: d,
		Scale:    DefaultScale,
	}
}

// detect returns the landmark set of the primary face, or ErrNoFace
// when the detector reports none.
func (p *Processor) detect(img image.Image) (landmark.Set, error) {
	sets, err := p.Detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, ErrNoFace
	}
	return sets[0], nil
}

// Process reads a single image from r, levels it on the eye line,
// crops it to the expanded face region and encodes the crop into w.
// We are using the io package, since we can provide different input
// and output types, as long as they implement the io.Reader and
// io.Writer interface. When w is a file the encoding follows its
// extension, otherwise the crop is written as JPEG.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return err
	}

	aligned, err := p.Align(src)
	if err != nil {
		return err
	}
	face, err := p.CropToFace(aligned)
	if err != nil {
		return err
	}

	ext := ".jpg"
	if f, ok := w.(*os.File); ok {
		if e := filepath.Ext(f.Name()); e != "" {
			ext = e
		}
	}
	return encodeImg(w, face, ext)
}
