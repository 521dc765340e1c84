package faceprep

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeupnet/faceprep/dataset"
	"github.com/makeupnet/faceprep/landmark"
)

// writePNG writes an image under the given path, creating it fresh.
func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// seedSources fills a source directory with level-eyed marker images.
func seedSources(t *testing.T, dir string, names ...string) {
	t.Helper()
	img := markImage(120, 100, image.Pt(30, 40), image.Pt(90, 40))
	for _, name := range names {
		writePNG(t, filepath.Join(dir, name), img)
	}
}

// countingDetector forwards to the marker detector and counts the
// Detect calls it sees. Safe for single-worker runs only.
type countingDetector struct {
	calls int
}

func (d *countingDetector) Detect(img image.Image) ([]landmark.Set, error) {
	d.calls++
	return markerDetector{}.Detect(img)
}

func TestProcessor_ExtractAll(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), filepath.Join(t.TempDir(), "faces")
	seedSources(t, srcDir, "1-before.png", "1-after.png", "2-before.png")

	p := NewProcessor(markerDetector{})
	op := &Ops{
		SourceDir:     srcDir,
		DestDir:       destDir,
		WithLandmarks: true,
		Workers:       2,
	}

	sum, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(3, sum.Extracted)
	assert.Equal(0, sum.Cached)
	assert.Equal(0, sum.Failed)

	for _, name := range []string{"1-before.png", "1-after.png", "2-before.png"} {
		stem := dataset.Stem(name)
		assert.FileExists(filepath.Join(destDir, name))
		assert.FileExists(filepath.Join(destDir, dataset.LandmarksDir, stem+".png"))
		assert.FileExists(filepath.Join(destDir, dataset.LandmarksDir, stem+".json"))
	}

	// The raster canvas matches the face crop it was detected on.
	face, err := decodeImg(filepath.Join(destDir, "1-before.png"))
	assert.NoError(err)
	raster, err := decodeImg(filepath.Join(destDir, dataset.LandmarksDir, "1-before.png"))
	assert.NoError(err)
	assert.Equal(face.Bounds(), raster.Bounds())

	// The point sidecar deserializes back into both eyes.
	data, err := os.ReadFile(filepath.Join(destDir, dataset.LandmarksDir, "1-before.json"))
	assert.NoError(err)
	set, err := landmark.Unmarshal(data)
	assert.NoError(err)
	assert.NotEmpty(set[landmark.LeftEye])
	assert.NotEmpty(set[landmark.RightEye])

	// No leftover temporary files from the atomic writes.
	for _, dir := range []string{destDir, filepath.Join(destDir, dataset.LandmarksDir)} {
		tmps, err := filepath.Glob(filepath.Join(dir, ".*"))
		assert.NoError(err)
		assert.Empty(tmps)
	}
}

func TestProcessor_ExtractAllRerunIsCached(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), t.TempDir()
	seedSources(t, srcDir, "1-before.png", "1-after.png")

	d := &countingDetector{}
	p := NewProcessor(d)
	op := &Ops{SourceDir: srcDir, DestDir: destDir, WithLandmarks: true, Workers: 1}

	_, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.NotZero(d.calls)

	// The fully cached rerun short-circuits on the existence checks,
	// before any decode or detection work.
	calls := d.calls
	sum, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(0, sum.Extracted)
	assert.Equal(2, sum.Cached)
	assert.Equal(calls, d.calls)

	// Each artifact is guarded on its own: removing one brings back
	// just that file while the rest stays cached.
	raster := filepath.Join(destDir, dataset.LandmarksDir, "1-before.png")
	require.NoError(t, os.Remove(raster))

	sum, err = p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(1, sum.Extracted)
	assert.Equal(1, sum.Cached)
	assert.FileExists(raster)

	face := filepath.Join(destDir, "1-after.png")
	require.NoError(t, os.Remove(face))

	sum, err = p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(1, sum.Extracted)
	assert.Equal(1, sum.Cached)
	assert.FileExists(face)
}

func TestProcessor_ExtractAllIsolatesFailures(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), t.TempDir()
	seedSources(t, srcDir, "1-before.png", "1-after.png")

	// Not an image at all.
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "2-before.png"), []byte("scrambled"), 0644))
	// An image without the eye markers.
	writePNG(t, filepath.Join(srcDir, "3-before.png"), image.NewNRGBA(image.Rect(0, 0, 60, 60)))

	p := NewProcessor(markerDetector{})
	op := &Ops{SourceDir: srcDir, DestDir: destDir, Workers: 1}

	sum, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(2, sum.Extracted)
	assert.Equal(2, sum.Failed)

	failed := map[string]error{}
	for _, res := range sum.Failures {
		failed[res.File] = res.Err
	}
	assert.Len(failed, 2)
	assert.Contains(failed, "2-before.png")
	assert.ErrorIs(failed["3-before.png"], ErrNoFace)

	assert.FileExists(filepath.Join(destDir, "1-before.png"))
	assert.FileExists(filepath.Join(destDir, "1-after.png"))
	assert.NoFileExists(filepath.Join(destDir, "2-before.png"))
	assert.NoFileExists(filepath.Join(destDir, "3-before.png"))
}

func TestProcessor_ExtractAllSweeps(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), t.TempDir()
	seedSources(t, srcDir, "1-before.png", "1-after.png", "2-before.png")

	p := NewProcessor(markerDetector{})
	op := &Ops{
		SourceDir:     srcDir,
		DestDir:       destDir,
		WithLandmarks: true,
		EnsurePairs:   true,
		Workers:       1,
	}

	sum, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal(3, sum.Extracted)

	// The after side of pair 2 never arrived, so its face and both of
	// its landmark artifacts are cleaned up after the batch.
	assert.Equal([]string{"2-before.png"}, sum.RemovedPairs)
	assert.Equal([]string{"2-before.json", "2-before.png"}, sum.RemovedOrphans)

	assert.NoFileExists(filepath.Join(destDir, "2-before.png"))
	assert.NoFileExists(filepath.Join(destDir, dataset.LandmarksDir, "2-before.png"))
	assert.NoFileExists(filepath.Join(destDir, dataset.LandmarksDir, "2-before.json"))

	assert.FileExists(filepath.Join(destDir, "1-before.png"))
	assert.FileExists(filepath.Join(destDir, "1-after.png"))
	assert.FileExists(filepath.Join(destDir, dataset.LandmarksDir, "1-before.png"))
	assert.FileExists(filepath.Join(destDir, dataset.LandmarksDir, "1-after.json"))
}

func TestProcessor_ExtractAllCancelledSkipsSweep(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), t.TempDir()

	// An unpaired face the janitor would normally remove.
	unpaired := filepath.Join(destDir, "9-before.png")
	writePNG(t, unpaired, image.NewNRGBA(image.Rect(0, 0, 10, 10)))

	p := NewProcessor(markerDetector{})
	op := &Ops{SourceDir: srcDir, DestDir: destDir, EnsurePairs: true, Workers: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ExtractAll(ctx, op)
	assert.ErrorIs(err, context.Canceled)
	assert.FileExists(unpaired)

	// The same run without cancellation does sweep it away.
	sum, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Equal([]string{"9-before.png"}, sum.RemovedPairs)
	assert.NoFileExists(unpaired)
}

func TestProcessor_ExtractAllProgress(t *testing.T) {
	assert := assert.New(t)

	srcDir, destDir := t.TempDir(), t.TempDir()
	seedSources(t, srcDir, "1-before.png", "1-after.png")

	var results []FileResult
	p := NewProcessor(markerDetector{})
	op := &Ops{
		SourceDir: srcDir,
		DestDir:   destDir,
		Workers:   1,
		Progress:  func(res FileResult) { results = append(results, res) },
	}

	_, err := p.ExtractAll(context.Background(), op)
	assert.NoError(err)
	assert.Len(results, 2)

	seen := map[string]Status{}
	for _, res := range results {
		seen[res.File] = res.Status
	}
	assert.Equal(Extracted, seen["1-before.png"])
	assert.Equal(Extracted, seen["1-after.png"])
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "extracted", Extracted.String())
	assert.Equal(t, "cached", Cached.String())
	assert.Equal(t, "failed", Failed.String())
}
