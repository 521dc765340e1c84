package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/makeupnet/faceprep"
	"github.com/makeupnet/faceprep/dataset"
	"github.com/makeupnet/faceprep/internal/journal"
	"github.com/makeupnet/faceprep/landmark"
	"github.com/makeupnet/faceprep/utils"
)

// Options holds the shared flags of the extraction commands.
type Options struct {
	SourceDir     string
	DestDir       string
	CascadeDir    string
	Image         string
	WithLandmarks bool
	EnsurePairs   bool
	Workers       int
	Scale         float64
	Watch         bool
	Settle        time.Duration
	NoJournal     bool
}

// resolve fills the unset options from the configuration.
func (o *Options) resolve() {
	if o.SourceDir == "" {
		o.SourceDir = cfg.SourceDir
	}
	if o.DestDir == "" {
		o.DestDir = cfg.DestDir
	}
	if o.CascadeDir == "" {
		o.CascadeDir = cfg.CascadeDir
	}
	if o.Workers == 0 {
		o.Workers = cfg.Workers
	}
	if o.Scale == 0 {
		o.Scale = cfg.Scale
	}
}

var extractOpts Options

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract aligned face crops and landmark maps from raw photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.Context(), extractOpts)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOpts.SourceDir, "source_dir", "", "Raw image directory (defaults to the configured layout)")
	extractCmd.Flags().StringVar(&extractOpts.DestDir, "dest_dir", "", "Face output directory (defaults to the configured layout)")
	extractCmd.Flags().StringVar(&extractOpts.CascadeDir, "cascade_dir", "", "Cascade classifier directory (defaults to the configured layout)")
	extractCmd.Flags().StringVarP(&extractOpts.Image, "image", "i", "", "Process a single image, given relative to the source directory, a URL or an absolute path")
	extractCmd.Flags().BoolVar(&extractOpts.WithLandmarks, "with_landmarks", false, "Also write the landmark raster and serialized points per face")
	extractCmd.Flags().BoolVar(&extractOpts.EnsurePairs, "ensure_pairs", false, "Remove face images lacking their before/after partner after the run")
	extractCmd.Flags().IntVar(&extractOpts.Workers, "workers", 0, "Number of files to process concurrently")
	extractCmd.Flags().Float64Var(&extractOpts.Scale, "scale", 0, "Bounding box expansion factor")
	extractCmd.Flags().BoolVar(&extractOpts.Watch, "watch", false, "Keep watching the source directory and reprocess on changes")
	extractCmd.Flags().DurationVar(&extractOpts.Settle, "settle", faceprep.DefaultSettle, "Quiet interval before a watch cycle runs")
	extractCmd.Flags().BoolVar(&extractOpts.NoJournal, "no_journal", false, "Skip recording the run in the journal")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(ctx context.Context, opts Options) error {
	opts.resolve()

	detector, err := landmark.NewPigoDetector(opts.CascadeDir, landmark.DefaultDetectorParams())
	if err != nil {
		return err
	}
	p := faceprep.NewProcessor(detector)
	if opts.Scale > 0 {
		p.Scale = opts.Scale
	}

	if opts.Image != "" {
		return extractSingle(p, opts)
	}

	op := &faceprep.Ops{
		SourceDir:     opts.SourceDir,
		DestDir:       opts.DestDir,
		WithLandmarks: opts.WithLandmarks,
		EnsurePairs:   opts.EnsurePairs,
		Workers:       opts.Workers,
	}

	if opts.Watch {
		err := p.Watch(ctx, op, opts.Settle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return extractBatch(ctx, p, op, opts)
}

// extractBatch runs one journaled batch over the source directory.
func extractBatch(ctx context.Context, p *faceprep.Processor, op *faceprep.Ops, opts Options) error {
	files, err := dataset.ListFiles(op.SourceDir)
	if err != nil {
		return fmt.Errorf("unable to read the source directory: %v", err)
	}

	var jnl *journal.Journal
	if cfg.Journal && !opts.NoJournal {
		j, err := journal.Open(filepath.Join(op.DestDir, ".faceprep", "journal.db"))
		if err != nil {
			logrus.WithError(err).Warn("cannot open the run journal")
		} else {
			jnl = j
		}
	}
	defer jnl.Close()

	runID := journal.NewRunID()
	if err := jnl.Begin(journal.Run{
		ID:            runID,
		Mode:          "extract",
		SourceDir:     op.SourceDir,
		DestDir:       op.DestDir,
		WithLandmarks: op.WithLandmarks,
		EnsurePairs:   op.EnsurePairs,
	}); err != nil {
		logrus.WithError(err).Warn("cannot record the run start")
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("⛏ extracting faces"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}
	op.Progress = func(res faceprep.FileResult) {
		if bar != nil {
			bar.Add(1)
		}
		if res.Err != nil {
			if err := jnl.RecordFailure(runID, res.File, res.Err.Error()); err != nil {
				logrus.WithError(err).Warn("cannot record the failure")
			}
		}
	}

	sum, err := p.ExtractAll(ctx, op)
	if bar != nil {
		bar.Finish()
	}

	outcome := journal.Outcome{
		Extracted:      sum.Extracted,
		Cached:         sum.Cached,
		Failed:         sum.Failed,
		RemovedPairs:   len(sum.RemovedPairs),
		RemovedOrphans: len(sum.RemovedOrphans),
	}
	if err != nil {
		outcome.Error = err.Error()
	}
	if jerr := jnl.Finish(runID, outcome); jerr != nil {
		logrus.WithError(jerr).Warn("cannot record the run outcome")
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nRun interrupted. Rerun to pick up where it left off.")
			return nil
		}
		return err
	}

	printSummary(sum)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, len(files))
	}
	return nil
}

// extractSingle processes one image only, writing the aligned face
// crop into the destination directory. Landmark artifacts and the
// janitor passes are skipped in single image mode.
func extractSingle(p *faceprep.Processor, opts Options) error {
	in := opts.Image
	base := filepath.Base(in)

	// The source can be a URL as well as a local path.
	if utils.IsValidUrl(in) {
		if u, err := url.Parse(in); err == nil && u.Path != "" {
			base = filepath.Base(u.Path)
		}
		tmp, err := utils.DownloadImage(in)
		if err != nil {
			return fmt.Errorf("failed to load the source image: %v", err)
		}
		defer os.Remove(tmp)
		in = tmp
	} else if !filepath.IsAbs(in) {
		in = filepath.Join(opts.SourceDir, in)
	}

	if err := os.MkdirAll(opts.DestDir, 0755); err != nil {
		return err
	}
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("unable to open the source file: %v", err)
	}
	defer src.Close()

	out := filepath.Join(opts.DestDir, base)
	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %v", err)
	}
	defer dst.Close()

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ FACEPREP", utils.StatusMessage),
		utils.DecorateText("is extracting the face...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	spinner.Start()
	err = p.Process(src, dst)
	if err != nil {
		spinner.StopMsg = fmt.Sprintf("%s %s %s",
			utils.DecorateText("⚡ FACEPREP", utils.StatusMessage),
			utils.DecorateText("extracting the face failed...", utils.DefaultMessage),
			utils.DecorateText("✘", utils.ErrorMessage))
		spinner.Stop()

		// remove the generated image file in case of an error
		os.Remove(out)
		return err
	}
	spinner.StopMsg = fmt.Sprintf("%s %s %s",
		utils.DecorateText("⚡ FACEPREP", utils.StatusMessage),
		utils.DecorateText("⇢", utils.DefaultMessage),
		utils.DecorateText("the face has been extracted successfully ✔", utils.SuccessMessage))
	spinner.Stop()

	fmt.Fprintf(os.Stderr, "\nThe face image has been saved as: %s %s\n",
		utils.DecorateText(filepath.Base(out), utils.SuccessMessage),
		utils.DefaultColor,
	)
	return nil
}

// printSummary displays the relevant counters of a finished batch.
func printSummary(sum *faceprep.Summary) {
	fmt.Fprintf(os.Stderr, "\n%d extracted, %d cached, %d failed\n",
		sum.Extracted, sum.Cached, sum.Failed)
	if n := len(sum.RemovedPairs); n > 0 {
		fmt.Fprintf(os.Stderr, "Removed %d unpaired images\n", n)
	}
	if n := len(sum.RemovedOrphans); n > 0 {
		fmt.Fprintf(os.Stderr, "Removed %d orphan landmark files\n", n)
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n",
		utils.DecorateText(utils.FormatTime(sum.Elapsed), utils.SuccessMessage))
}
