package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/regattaflow/trackcore/internal/decoder"
	"github.com/regattaflow/trackcore/internal/models"
)

var (
	decodeFormat string
	decodeOut    string
)

type decodeOutcome struct {
	file   string
	result *models.DecodeResult
	err    error
}

var decodeCmd = &cobra.Command{
	Use:   "decode [files...]",
	Short: "Decode track export files into normalized JSON envelopes.",
	Long: `Decode reads each file, detects or applies the given source format, and
either writes one JSON envelope per input into --out or prints a summary.
Files are decoded in parallel; the exit status is non-zero when any file
fails to decode.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if decodeOut != "" {
			if err := os.MkdirAll(decodeOut, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		format := models.SourceFormat(strings.ToLower(strings.TrimSpace(decodeFormat)))

		outcomes := make([]decodeOutcome, len(args))

		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for i, path := range args {
			i, path := i, path
			g.Go(func() error {
				outcomes[i] = decodeFile(path, format)
				return nil
			})
		}
		_ = g.Wait()

		failed := 0
		for _, outcome := range outcomes {
			if outcome.err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", outcome.file, outcome.err)
				continue
			}
			points := 0
			for i := range outcome.result.Tracks {
				points += len(outcome.result.Tracks[i].Points)
			}
			fmt.Printf("%s: %s, %d track(s), %d points, %d warning(s)\n",
				outcome.file,
				outcome.result.SourceFormat,
				len(outcome.result.Tracks),
				points,
				len(outcome.result.Warnings),
			)
			for _, warning := range outcome.result.Warnings {
				fmt.Printf("  warning: %s\n", warning)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed to decode", failed, len(args))
		}
		return nil
	},
}

func decodeFile(path string, format models.SourceFormat) decodeOutcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return decodeOutcome{file: path, err: err}
	}

	result, err := decoder.Decode(data, format)
	outcome := decodeOutcome{file: path, result: result, err: err}
	if err != nil {
		return outcome
	}

	if decodeOut != "" {
		buf, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			outcome.err = err
			return outcome
		}
		target := filepath.Join(decodeOut, filepath.Base(path)+".json")
		if err := os.WriteFile(target, buf, 0644); err != nil {
			outcome.err = err
		}
	}
	return outcome
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "",
		"source format (meridian, meridian-csv, gpx, nmea); empty auto-detects per file")
	decodeCmd.Flags().StringVar(&decodeOut, "out", "",
		"directory for JSON envelopes; empty prints summaries only")
	rootCmd.AddCommand(decodeCmd)
}
