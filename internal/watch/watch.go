// Package watch re-runs a conversion whenever the source file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rowbridge/rowbridge/internal/engine"
)

// debounceWindow coalesces the burst of events editors emit on save.
const debounceWindow = 200 * time.Millisecond

// Run converts source once, then watches it and reconverts on every change
// until the context is cancelled. Results are logged, not returned: the loop
// keeps going past failed conversions.
func Run(ctx context.Context, e *engine.Engine, source string, opts engine.Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory, not the file: editors commonly replace the file
	// on save, which would drop a file-level watch.
	abs, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", source, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	convert := func() {
		res := e.Convert(ctx, source, opts)
		switch res.Status {
		case engine.StatusConverted:
			logger.Info("converted", "source", res.Source, "output", res.Output)
		case engine.StatusSkipped:
			logger.Info("skipped", "source", res.Source, "reason", res.Reason)
		case engine.StatusFailed:
			logger.Warn("conversion failed", "source", res.Source, "error", res.Err)
		}
	}
	convert()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			convert()
		}
	}
}
