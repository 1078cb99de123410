// Package watcher imports track exports dropped into a spool directory.
// Every new file is decoded once writes to it have settled, and the decode
// envelope is written to the output directory as <name>.json.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/regattaflow/trackcore/internal/config"
	"github.com/regattaflow/trackcore/internal/decoder"
	"github.com/regattaflow/trackcore/internal/logging"
	"github.com/regattaflow/trackcore/internal/metrics"
	"github.com/regattaflow/trackcore/internal/models"
)

// Watcher is the spool-directory import loop. Files are picked up at most
// once; removing and re-creating a file makes it eligible again.
type Watcher struct {
	dir    string
	outDir string
	format models.SourceFormat
	settle time.Duration
	tick   time.Duration

	metrics  *metrics.MetricsRegistry
	onResult func(path string, result *models.DecodeResult)

	processed map[string]bool
}

// Options configures a Watcher beyond the directories.
type Options struct {
	// Format forces a source format for every spool file; empty means
	// auto-detection per file.
	Format models.SourceFormat
	// Metrics may be nil when the watcher runs outside the service.
	Metrics *metrics.MetricsRegistry
	// OnResult, when set, is called after each envelope has been written.
	OnResult func(path string, result *models.DecodeResult)
}

// New builds a Watcher from config. OutDir defaults to a "decoded"
// subdirectory of the spool dir and is created if missing.
func New(cfg config.WatcherConfig, opts Options) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watcher: spool directory not configured")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watcher: spool directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watcher: %s is not a directory", cfg.Dir)
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = filepath.Join(cfg.Dir, "decoded")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("watcher: create output directory: %w", err)
	}

	settle := time.Duration(cfg.SettleMS) * time.Millisecond
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	tick := settle / 4
	if tick < 50*time.Millisecond {
		tick = 50 * time.Millisecond
	}

	return &Watcher{
		dir:       cfg.Dir,
		outDir:    outDir,
		format:    opts.Format,
		settle:    settle,
		tick:      tick,
		metrics:   opts.Metrics,
		onResult:  opts.OnResult,
		processed: make(map[string]bool),
	}, nil
}

// Run watches the spool directory until ctx is cancelled. Files already
// present at startup are imported too, after the same settle delay.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}

	// Pending files and the time of their last observed write. A file is
	// imported once no event has touched it for a full settle window.
	pending := make(map[string]time.Time)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watcher: scan %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if !entry.IsDir() && w.eligible(path) {
			pending[path] = time.Now()
		}
	}

	logging.Info("spool watcher started",
		"dir", w.dir,
		"out_dir", w.outDir,
		"settle", w.settle.String(),
		"backlog", len(pending),
	)

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if w.eligible(event.Name) {
					pending[event.Name] = time.Now()
				}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
				delete(w.processed, event.Name)
			}

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				if w.processed[path] {
					continue
				}
				w.processed[path] = true
				w.processFile(path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("spool watcher error", "error", err)
		}
	}
}

// eligible filters out directories, envelope output, and editor droppings.
func (w *Watcher) eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".tmp", ".part", ".swp":
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	return true
}

func (w *Watcher) processFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("spool file unreadable", "file", path, "error", err)
		return
	}
	if len(data) == 0 {
		logging.Debug("skipping empty spool file", "file", path)
		return
	}

	start := time.Now()
	result, decodeErr := decoder.Decode(data, w.format)
	elapsed := time.Since(start)
	w.metrics.ObserveDecode(result, elapsed)

	points := 0
	for i := range result.Tracks {
		points += len(result.Tracks[i].Points)
	}

	if decodeErr != nil {
		logging.Warn("spool file rejected",
			"file", filepath.Base(path),
			"format", string(result.SourceFormat),
			"error", decodeErr,
		)
	} else {
		logging.Info("spool file decoded",
			"file", filepath.Base(path),
			"format", string(result.SourceFormat),
			"tracks", len(result.Tracks),
			"points", points,
			"warnings", len(result.Warnings),
			"elapsed_ms", elapsed.Milliseconds(),
		)
	}

	outPath := filepath.Join(w.outDir, filepath.Base(path)+".json")
	if err := w.writeEnvelope(outPath, result); err != nil {
		logging.Error("write decode envelope failed", "file", outPath, "error", err)
		return
	}

	if w.onResult != nil {
		w.onResult(path, result)
	}
}

// writeEnvelope writes the result atomically so a reader of the output
// directory never sees a half-written envelope.
func (w *Watcher) writeEnvelope(path string, result *models.DecodeResult) error {
	buf, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
