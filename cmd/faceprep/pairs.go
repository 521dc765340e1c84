package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/makeupnet/faceprep/dataset"
)

var pairsOpts struct {
	DestDir string
	CSV     string
}

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "List the consistent before/after pairs of the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPairs()
	},
}

func init() {
	pairsCmd.Flags().StringVar(&pairsOpts.DestDir, "dest_dir", "", "Face output directory (defaults to the configured layout)")
	pairsCmd.Flags().StringVar(&pairsOpts.CSV, "csv", "", "Write the pair manifest to this CSV file instead of listing")
	rootCmd.AddCommand(pairsCmd)
}

func runPairs() error {
	destDir := pairsOpts.DestDir
	if destDir == "" {
		destDir = cfg.DestDir
	}

	pairs, err := dataset.List(destDir)
	if err != nil {
		return err
	}

	if pairsOpts.CSV != "" {
		f, err := os.Create(pairsOpts.CSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := dataset.WriteManifest(f, pairs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d pairs to %s\n", len(pairs), pairsOpts.CSV)
		return nil
	}

	if len(pairs) == 0 {
		fmt.Println("No consistent pairs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "INDEX\tBEFORE\tAFTER\tLANDMARKS")
	fmt.Fprintln(w, "-----\t------\t-----\t---------")
	for _, p := range pairs {
		landmarks := "no"
		if p.BeforeRaster != "" && p.AfterRaster != "" {
			landmarks = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Index, p.Before, p.After, landmarks)
	}
	return w.Flush()
}
