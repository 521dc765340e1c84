package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/makeupnet/faceprep/internal/config"
	"github.com/makeupnet/faceprep/utils"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌─┐┬─┐┌─┐┌─┐
├┤ ├─┤│  ├┤ ├─┘├┬┘├┤ ├─┘
┴  ┴ ┴└─┘└─┘┴  ┴└─└─┘┴

Face extraction and landmark preprocessing tool.
    Version: %s
`

// Version indicates the current build version.
var Version = "1.0.0"

var (
	cfg     *config.Config
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:     "faceprep",
	Short:   "Face extraction and landmark preprocessing tool",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		utils.NoColor = noColor

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %v", cfg.LogLevel, err)
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no_color", false, "Disable colored terminal output")
}

func main() {
	// Capture CTRL-C so a running batch stops between files and the
	// partially processed directory stays resumable.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Long = fmt.Sprintf(HelpBanner, Version)
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}
