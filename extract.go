package faceprep

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makeupnet/faceprep/dataset"
	"github.com/makeupnet/faceprep/landmark"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// Ops holds the batch extraction options.
type Ops struct {
	SourceDir, DestDir string
	WithLandmarks      bool
	EnsurePairs        bool
	Workers            int

	// Progress, when set, receives every per-file result as it is
	// produced. Called from the aggregation goroutine only.
	Progress func(FileResult)
}

// Status describes the outcome of processing one source file.
type Status int

const (
	// Extracted means at least one missing artifact was produced.
	Extracted Status = iota
	// Cached means every artifact already existed and was left alone.
	Cached
	// Failed means the file produced an error and was skipped.
	Failed
)

func (s Status) String() string {
	switch s {
	case Extracted:
		return "extracted"
	case Cached:
		return "cached"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// FileResult reports the outcome of one source file.
type FileResult struct {
	File   string
	Status Status
	Err    error
}

// Summary aggregates the outcome of a batch run.
type Summary struct {
	Extracted      int
	Cached         int
	Failed         int
	Failures       []FileResult
	RemovedPairs   []string
	RemovedOrphans []string
	Elapsed        time.Duration
}

// ExtractAll processes every file of the source directory into the
// destination directory: an aligned face crop per file and, with
// WithLandmarks, the landmark raster and serialized points under the
// landmarks subdirectory. Already present artifacts are skipped, so a
// rerun does no redundant work. Per-file errors are reported in the
// summary without aborting the batch. After the batch has quiesced the
// janitor passes run as requested by EnsurePairs and WithLandmarks.
// Cancelling the context stops the run between files and skips the
// janitor, since it must observe a stable directory snapshot.
func (p *Processor) ExtractAll(ctx context.Context, op *Ops) (*Summary, error) {
	sum, err := p.extractBatch(ctx, op)
	if err != nil {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if err := p.sweep(op, sum); err != nil {
		return sum, err
	}
	return sum, nil
}

// extractBatch runs the per-file extraction loop with worker-pool
// concurrency and returns the aggregated summary. The janitor passes
// are left to the caller.
func (p *Processor) extractBatch(ctx context.Context, op *Ops) (*Summary, error) {
	sum := &Summary{}
	now := time.Now()

	files, err := dataset.ListFiles(op.SourceDir)
	if err != nil {
		return sum, err
	}
	if err := os.MkdirAll(op.DestDir, 0755); err != nil {
		return sum, err
	}
	if op.WithLandmarks {
		if err := os.MkdirAll(filepath.Join(op.DestDir, dataset.LandmarksDir), 0755); err != nil {
			return sum, err
		}
	}

	// Limit the concurrently running workers to maxWorkers.
	workers := op.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
		if workers > maxWorkers {
			workers = maxWorkers
		}
	}

	ch := make(chan FileResult)
	done := make(chan interface{})
	defer close(done)

	paths := produce(ctx, done, files)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			p.consume(op, ch, done, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	// Consume the channel values.
	for res := range ch {
		switch res.Status {
		case Extracted:
			sum.Extracted++
		case Cached:
			sum.Cached++
		case Failed:
			sum.Failed++
			sum.Failures = append(sum.Failures, res)
			logrus.WithError(res.Err).WithField("file", res.File).Error("extraction failed")
		}
		if op.Progress != nil {
			op.Progress(res)
		}
	}

	sum.Elapsed = time.Since(now)
	return sum, nil
}

// sweep runs the janitor passes requested by the options and records
// the removed files in the summary.
func (p *Processor) sweep(op *Ops, sum *Summary) error {
	if op.EnsurePairs {
		removed, err := SweepPairs(op.DestDir)
		if err != nil {
			return err
		}
		sum.RemovedPairs = removed
	}
	if op.WithLandmarks {
		removed, err := SweepOrphans(op.DestDir)
		if err != nil {
			return err
		}
		sum.RemovedOrphans = removed
	}
	return nil
}

// produce sends the file names to a new channel, stopping when the
// context is cancelled or the done channel closes.
func produce(ctx context.Context, done <-chan interface{}, files []string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, file := range files {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case out <- file:
			}
		}
	}()
	return out
}

// consume reads file names from the paths channel and runs the
// extraction against each one.
func (p *Processor) consume(
	op *Ops,
	res chan<- FileResult,
	done <-chan interface{},
	paths <-chan string,
) {
	for file := range paths {
		r := p.extractOne(op, file)

		select {
		case <-done:
			return
		case res <- r:
		}
	}
}

// extractOne produces the missing artifacts of a single source file.
func (p *Processor) extractOne(op *Ops, file string) FileResult {
	res := FileResult{File: file}

	facePath := filepath.Join(op.DestDir, file)
	status, err := p.extractFace(filepath.Join(op.SourceDir, file), facePath)
	if err != nil {
		res.Status, res.Err = Failed, err
		return res
	}
	res.Status = status

	if op.WithLandmarks {
		worked, err := p.extractLandmarks(facePath, filepath.Join(op.DestDir, dataset.LandmarksDir), file)
		if err != nil {
			res.Status, res.Err = Failed, err
			return res
		}
		if worked {
			res.Status = Extracted
		}
	}
	return res
}

// extractFace writes the aligned face crop of src into dst. An already
// existing dst is left alone.
func (p *Processor) extractFace(src, dst string) (Status, error) {
	if exists(dst) {
		return Cached, nil
	}
	img, err := decodeImg(src)
	if err != nil {
		return Failed, err
	}
	aligned, err := p.Align(img)
	if err != nil {
		return Failed, err
	}
	face, err := p.CropToFace(aligned)
	if err != nil {
		return Failed, err
	}
	if err := saveImage(dst, face); err != nil {
		return Failed, err
	}
	return Extracted, nil
}

// extractLandmarks writes the landmark raster and the serialized
// points of an extracted face image into the landmarks directory,
// each guarded by its own existence check. Reports whether any
// artifact was produced.
func (p *Processor) extractLandmarks(facePath, lmDir, file string) (bool, error) {
	stem := dataset.Stem(file)
	rasterPath := filepath.Join(lmDir, stem+".png")
	pointsPath := filepath.Join(lmDir, stem+".json")

	needRaster := !exists(rasterPath)
	needPoints := !exists(pointsPath)
	if !needRaster && !needPoints {
		return false, nil
	}

	img, err := decodeImg(facePath)
	if err != nil {
		return false, err
	}
	set, err := p.detect(img)
	if err != nil {
		return false, err
	}

	if needRaster {
		b := img.Bounds()
		raster := landmark.Rasterize(set, b.Dx(), b.Dy())
		if err := saveImage(rasterPath, raster); err != nil {
			return false, err
		}
	}
	if needPoints {
		data, err := landmark.Marshal(set)
		if err != nil {
			return false, err
		}
		if err := writeFileAtomic(pointsPath, data); err != nil {
			return false, err
		}
	}
	return true, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
