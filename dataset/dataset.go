// Package dataset names, lists and pairs the artifacts of a processed
// before/after face dataset.
package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
)

// LandmarksDir is the subdirectory of the faces directory holding the
// landmark raster and serialized point sidecars.
const LandmarksDir = "landmarks"

// Role tells the two sides of a dataset pair apart.
type Role string

const (
	Before Role = "before"
	After  Role = "after"
)

// Opposite returns the partner role.
func (r Role) Opposite() Role {
	if r == Before {
		return After
	}
	return Before
}

// Name is a parsed dataset file name of the form {index}-{role}.{ext}.
// The index is kept as its on-disk token, so a zero-padded name renders
// back unchanged.
type Name struct {
	Index string
	Role  Role
	Ext   string
}

// ParseName parses a dataset file name. Names not matching the
// {index}-{role}.{ext} form return an error. The index must be
// numeric; its spelling is preserved.
func ParseName(file string) (Name, error) {
	stem, ext, ok := strings.Cut(file, ".")
	if !ok || ext == "" {
		return Name{}, fmt.Errorf("%s: missing extension", file)
	}
	idx, role, ok := strings.Cut(stem, "-")
	if !ok {
		return Name{}, fmt.Errorf("%s: missing role separator", file)
	}
	if _, err := strconv.Atoi(idx); err != nil {
		return Name{}, fmt.Errorf("%s: bad index: %w", file, err)
	}
	switch Role(role) {
	case Before, After:
	default:
		return Name{}, fmt.Errorf("%s: unknown role %q", file, role)
	}
	return Name{Index: idx, Role: Role(role), Ext: ext}, nil
}

// String renders the name back into its file form.
func (n Name) String() string {
	return fmt.Sprintf("%s-%s.%s", n.Index, n.Role, n.Ext)
}

// Partner returns the name of the paired file on the opposite side.
// The partner shares the index and extension.
func (n Name) Partner() Name {
	n.Role = n.Role.Opposite()
	return n
}

// Stem returns the part of a file name up to the first dot.
func Stem(file string) string {
	stem, _, _ := strings.Cut(file, ".")
	return stem
}

// ListFiles returns the plain file entries of dir in sorted order,
// skipping subdirectories and dotfiles.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Pair is one consistent before/after entry of the dataset manifest.
// The sidecar columns stay empty when the landmark artifacts are
// absent.
type Pair struct {
	Index        string `csv:"index"`
	Before       string `csv:"before"`
	After        string `csv:"after"`
	BeforeRaster string `csv:"before_raster"`
	BeforePoints string `csv:"before_points"`
	AfterRaster  string `csv:"after_raster"`
	AfterPoints  string `csv:"after_points"`
}

// List returns the consistent pairs of the faces directory in numeric
// index order. Pairing goes by the index token, so two spellings of
// the same number are separate pairs. Files with non-conforming names
// are ignored, as are indices with only one side present. Sidecar
// paths are filled in when the landmark artifacts exist on disk,
// relative to the faces directory.
func List(facesDir string) ([]Pair, error) {
	files, err := ListFiles(facesDir)
	if err != nil {
		return nil, err
	}
	sides := make(map[string]map[Role]string)
	for _, file := range files {
		name, err := ParseName(file)
		if err != nil {
			continue
		}
		if sides[name.Index] == nil {
			sides[name.Index] = make(map[Role]string)
		}
		sides[name.Index][name.Role] = file
	}

	var pairs []Pair
	for index, side := range sides {
		before, after := side[Before], side[After]
		if before == "" || after == "" {
			continue
		}
		p := Pair{Index: index, Before: before, After: after}
		p.BeforeRaster, p.BeforePoints = sidecars(facesDir, before)
		p.AfterRaster, p.AfterPoints = sidecars(facesDir, after)
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, _ := strconv.Atoi(pairs[i].Index)
		b, _ := strconv.Atoi(pairs[j].Index)
		if a != b {
			return a < b
		}
		return pairs[i].Index < pairs[j].Index
	})
	return pairs, nil
}

// sidecars resolves the raster and points paths of one face file,
// returning empty strings for artifacts not on disk.
func sidecars(facesDir, file string) (raster, points string) {
	stem := Stem(file)
	r := filepath.Join(LandmarksDir, stem+".png")
	if _, err := os.Stat(filepath.Join(facesDir, r)); err == nil {
		raster = r
	}
	p := filepath.Join(LandmarksDir, stem+".json")
	if _, err := os.Stat(filepath.Join(facesDir, p)); err == nil {
		points = p
	}
	return raster, points
}

// WriteManifest writes the pairs as a CSV manifest.
func WriteManifest(w io.Writer, pairs []Pair) error {
	b, err := csvutil.Marshal(pairs)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
