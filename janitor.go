package faceprep

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/makeupnet/faceprep/dataset"
)

// SweepPairs removes every face image whose before/after partner is
// missing, so only consistent pairs survive. The listing is taken once
// up front; the partner check stats the live directory. Files with
// non-conforming names are skipped with a warning. Returns the removed
// file names.
func SweepPairs(dir string) ([]string, error) {
	files, err := dataset.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, file := range files {
		name, err := dataset.ParseName(file)
		if err != nil {
			logrus.WithField("file", file).Warn("skipping file with non-conforming name")
			continue
		}
		partner := filepath.Join(dir, name.Partner().String())
		_, err = os.Stat(partner)
		if err == nil {
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).WithField("file", file).Warn("cannot stat the partner file")
			continue
		}
		if err := os.Remove(filepath.Join(dir, file)); err != nil {
			logrus.WithError(err).WithField("file", file).Warn("cannot remove the unpaired file")
			continue
		}
		removed = append(removed, file)
	}
	return removed, nil
}

// SweepOrphans removes every file of the landmarks subdirectory whose
// stem matches no surviving face image. A missing landmarks directory
// is not an error. Returns the removed file names.
func SweepOrphans(dir string) ([]string, error) {
	faces, err := dataset.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	stems := make(map[string]struct{}, len(faces))
	for _, f := range faces {
		stems[dataset.Stem(f)] = struct{}{}
	}

	lmDir := filepath.Join(dir, dataset.LandmarksDir)
	arts, err := dataset.ListFiles(lmDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var removed []string
	for _, file := range arts {
		if _, ok := stems[dataset.Stem(file)]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(lmDir, file)); err != nil {
			logrus.WithError(err).WithField("file", file).Warn("cannot remove the orphan artifact")
			continue
		}
		removed = append(removed, file)
	}
	return removed, nil
}
