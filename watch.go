package faceprep

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultSettle is how long the source directory must stay quiet
// before a watch cycle processes the accumulated changes.
const DefaultSettle = 2 * time.Second

// Watch keeps the destination directory in sync with the source
// directory: it runs one extraction batch up front, then reprocesses
// whenever the source has been quiet for the settle interval after a
// change. The janitor passes run once on shutdown rather than per
// cycle, so a batch of files still being copied in does not get its
// half-arrived pairs deleted. Watch blocks until the context is
// cancelled.
func (p *Processor) Watch(ctx context.Context, op *Ops, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if _, err := p.extractBatch(ctx, op); err != nil {
		return err
	}
	if err := watcher.Add(op.SourceDir); err != nil {
		return err
	}

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			sum := &Summary{}
			if err := p.sweep(op, sum); err != nil {
				return err
			}
			if n := len(sum.RemovedPairs) + len(sum.RemovedOrphans); n > 0 {
				logrus.Infof("cleaned up %d inconsistent files on shutdown", n)
			}
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			timer.Reset(settle)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("source directory watch error")
		case <-timer.C:
			sum, err := p.extractBatch(ctx, op)
			if err != nil {
				return err
			}
			logrus.Infof("watch cycle: %d extracted, %d cached, %d failed",
				sum.Extracted, sum.Cached, sum.Failed)
		}
	}
}
