package faceprep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeupnet/faceprep/dataset"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestSweepPairs_RemovesUnpaired(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	for _, name := range []string{
		"1-before.png", "1-after.png",
		"2-before.png",
		"3-after.jpg",
		"notes.txt", "readme",
		".tmp-partial",
	} {
		touch(t, filepath.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, dataset.LandmarksDir), 0755))

	removed, err := SweepPairs(dir)
	assert.NoError(err)
	assert.Equal([]string{"2-before.png", "3-after.jpg"}, removed)

	// The consistent pair survives, non-conforming names are left
	// alone rather than removed.
	assert.FileExists(filepath.Join(dir, "1-before.png"))
	assert.FileExists(filepath.Join(dir, "1-after.png"))
	assert.FileExists(filepath.Join(dir, "notes.txt"))
	assert.FileExists(filepath.Join(dir, "readme"))
	assert.FileExists(filepath.Join(dir, ".tmp-partial"))
	assert.NoFileExists(filepath.Join(dir, "2-before.png"))
	assert.NoFileExists(filepath.Join(dir, "3-after.jpg"))
}

func TestSweepPairs_KeepsZeroPaddedPairs(t *testing.T) {
	assert := assert.New(t)

	// The partner lookup reproduces the on-disk index spelling, so a
	// zero-padded pair is consistent and must survive.
	dir := t.TempDir()
	for _, name := range []string{
		"01-before.png", "01-after.png",
		"02-before.png",
	} {
		touch(t, filepath.Join(dir, name))
	}

	removed, err := SweepPairs(dir)
	assert.NoError(err)
	assert.Equal([]string{"02-before.png"}, removed)

	assert.FileExists(filepath.Join(dir, "01-before.png"))
	assert.FileExists(filepath.Join(dir, "01-after.png"))
	assert.NoFileExists(filepath.Join(dir, "02-before.png"))
}

func TestSweepPairs_MixedExtensions(t *testing.T) {
	assert := assert.New(t)

	// The partner lookup substitutes the role and keeps the
	// extension, so sides saved in different formats do not pair up.
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "5-before.png"))
	touch(t, filepath.Join(dir, "5-after.jpg"))

	removed, err := SweepPairs(dir)
	assert.NoError(err)
	assert.Equal([]string{"5-after.jpg", "5-before.png"}, removed)
}

func TestSweepPairs_MissingDir(t *testing.T) {
	_, err := SweepPairs(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSweepOrphans_RemovesStaleArtifacts(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	lmDir := filepath.Join(dir, dataset.LandmarksDir)
	require.NoError(t, os.Mkdir(lmDir, 0755))

	touch(t, filepath.Join(dir, "1-before.png"))
	touch(t, filepath.Join(dir, "1-after.png"))

	for _, name := range []string{
		"1-before.png", "1-before.json",
		"1-after.json",
		"2-before.png", "2-before.json",
		"junk.txt",
	} {
		touch(t, filepath.Join(lmDir, name))
	}

	removed, err := SweepOrphans(dir)
	assert.NoError(err)
	assert.Equal([]string{"2-before.json", "2-before.png", "junk.txt"}, removed)

	assert.FileExists(filepath.Join(lmDir, "1-before.png"))
	assert.FileExists(filepath.Join(lmDir, "1-before.json"))
	assert.FileExists(filepath.Join(lmDir, "1-after.json"))
}

func TestSweepOrphans_NoLandmarksDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "1-before.png"))

	removed, err := SweepOrphans(dir)
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
