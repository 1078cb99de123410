package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/models"
	"github.com/regattaflow/trackcore/internal/watcher"
)

var (
	watchDir    string
	watchOut    string
	watchFormat string
	watchSettle int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a spool directory and decode every new track file.",
	Long: `Watch runs until interrupted. Files dropped into --dir are decoded once
writes to them settle, and one JSON envelope per file is written to --out
(default: a "decoded" subdirectory of the spool).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w, err := watcher.New(config.WatcherConfig{
			Dir:      watchDir,
			OutDir:   watchOut,
			SettleMS: watchSettle,
		}, watcher.Options{
			Format: models.SourceFormat(strings.ToLower(strings.TrimSpace(watchFormat))),
			OnResult: func(path string, result *models.DecodeResult) {
				name := filepath.Base(path)
				if !result.Success {
					fmt.Fprintf(os.Stderr, "%s: rejected: %s\n", name, strings.Join(result.Errors, "; "))
					return
				}
				points := 0
				for i := range result.Tracks {
					points += len(result.Tracks[i].Points)
				}
				fmt.Printf("%s: %s, %d track(s), %d points, %d warning(s)\n",
					name, result.SourceFormat, len(result.Tracks), points, len(result.Warnings))
			},
		})
		if err != nil {
			return err
		}

		fmt.Printf("Watching %s (Ctrl-C to stop)\n", watchDir)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "spool directory to watch (required)")
	watchCmd.Flags().StringVar(&watchOut, "out", "", "directory for JSON envelopes")
	watchCmd.Flags().StringVar(&watchFormat, "format", "",
		"source format to force; empty auto-detects per file")
	watchCmd.Flags().IntVar(&watchSettle, "settle-ms", 0,
		"quiet period before a file is considered fully written")
	_ = watchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(watchCmd)
}
