package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/makeupnet/faceprep/internal/journal"
)

var historyOpts struct {
	DestDir  string
	Limit    int
	Failures string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past extraction runs recorded in the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyOpts.DestDir, "dest_dir", "", "Face output directory (defaults to the configured layout)")
	historyCmd.Flags().IntVar(&historyOpts.Limit, "limit", 10, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyOpts.Failures, "failures", "", "Show the per-file failures of the given run ID")
	rootCmd.AddCommand(historyCmd)
}

func runHistory() error {
	destDir := historyOpts.DestDir
	if destDir == "" {
		destDir = cfg.DestDir
	}

	jnl, err := journal.Open(filepath.Join(destDir, ".faceprep", "journal.db"))
	if err != nil {
		return fmt.Errorf("cannot open the run journal: %v", err)
	}
	defer jnl.Close()

	if historyOpts.Failures != "" {
		return printFailures(jnl, historyOpts.Failures)
	}

	runs, err := jnl.RecentRuns(historyOpts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tEXTRACTED\tCACHED\tFAILED\tCLEANED\tSTATUS")
	fmt.Fprintln(w, "--\t-------\t---------\t------\t------\t-------\t------")
	for _, r := range runs {
		status := "running"
		if r.FinishedAt != nil {
			status = "done"
			if r.Error != "" {
				status = "error"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Extracted, r.Cached, r.Failed,
			r.RemovedPairs+r.RemovedOrphans, status)
	}
	return w.Flush()
}

func printFailures(jnl *journal.Journal, runID string) error {
	failures, err := jnl.Failures(runID)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Println("No failures recorded for this run.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FILE\tERROR\tAT")
	fmt.Fprintln(w, "----\t-----\t--")
	for _, f := range failures {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.File, f.Error, f.At.Format(time.RFC3339))
	}
	return w.Flush()
}
