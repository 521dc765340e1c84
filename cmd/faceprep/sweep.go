package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/makeupnet/faceprep"
)

var sweepOpts Options

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove unpaired face images and orphan landmark artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(sweepOpts)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepOpts.DestDir, "dest_dir", "", "Face output directory (defaults to the configured layout)")
	sweepCmd.Flags().BoolVar(&sweepOpts.EnsurePairs, "ensure_pairs", true, "Remove face images lacking their before/after partner")
	sweepCmd.Flags().BoolVar(&sweepOpts.WithLandmarks, "with_landmarks", true, "Remove landmark artifacts lacking a surviving face image")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(opts Options) error {
	opts.resolve()

	if opts.EnsurePairs {
		removed, err := faceprep.SweepPairs(opts.DestDir)
		if err != nil {
			return err
		}
		for _, f := range removed {
			logrus.Infof("removed unpaired image %s", f)
		}
		fmt.Fprintf(os.Stderr, "Removed %d unpaired images\n", len(removed))
	}
	if opts.WithLandmarks {
		removed, err := faceprep.SweepOrphans(opts.DestDir)
		if err != nil {
			return err
		}
		for _, f := range removed {
			logrus.Infof("removed orphan artifact %s", f)
		}
		fmt.Fprintf(os.Stderr, "Removed %d orphan landmark files\n", len(removed))
	}
	return nil
}
