package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Unit is one file plus its conversion options inside a batch.
type Unit struct {
	Source  string
	Options Options
}

// UnitError records a failed unit for the final report.
type UnitError struct {
	Source  string
	Message string
}

// Report summarizes a batch run.
type Report struct {
	RunID     string
	Converted int
	Skipped   int
	Failed    int
	Errors    []UnitError
	Results   []Result
	// Cancelled is set when the run stopped early on request. Units already
	// finished are still counted.
	Cancelled bool
}

// Runner processes conversion units sequentially. Pause, resume, and
// cancellation are honored only between units: a unit that has started
// always runs to completion.
type Runner struct {
	engine *Engine
	logger *slog.Logger

	// ProgressEvery controls how often a progress line is logged, in units.
	// Zero disables progress logging.
	ProgressEvery int

	mu     sync.Mutex
	paused bool
	gate   chan struct{}
}

// NewRunner creates a batch runner over the given engine.
func NewRunner(e *Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gate := make(chan struct{})
	close(gate)
	return &Runner{engine: e, logger: logger, gate: gate}
}

// Pause stops the runner before it starts the next unit. Safe to call from
// another goroutine; idempotent.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.paused {
		r.paused = true
		r.gate = make(chan struct{})
	}
}

// Resume lets a paused runner continue. Idempotent.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.paused = false
		close(r.gate)
	}
}

// Run processes the units in order, continuing past individual failures and
// collecting their messages for the final report. Context cancellation takes
// effect between units, never mid-unit.
func (r *Runner) Run(ctx context.Context, units []Unit) *Report {
	report := &Report{RunID: uuid.NewString()}
	r.logger.Info("batch started", "run_id", report.RunID, "units", len(units))

	for i, unit := range units {
		if err := r.waitReady(ctx); err != nil {
			report.Cancelled = true
			r.logger.Info("batch cancelled", "run_id", report.RunID, "completed", i, "total", len(units))
			break
		}

		res := r.engine.Convert(ctx, unit.Source, unit.Options)
		report.Results = append(report.Results, res)
		switch res.Status {
		case StatusConverted:
			report.Converted++
		case StatusSkipped:
			report.Skipped++
			r.logger.Info("unit skipped", "source", res.Source, "reason", res.Reason)
		case StatusFailed:
			report.Failed++
			report.Errors = append(report.Errors, UnitError{Source: res.Source, Message: res.Err.Error()})
			r.logger.Warn("unit failed", "source", res.Source, "error", res.Err)
		}

		if r.ProgressEvery > 0 && (i+1)%r.ProgressEvery == 0 {
			r.logger.Info("batch progress", "run_id", report.RunID, "processed", i+1, "total", len(units))
		}
	}

	r.logger.Info("batch finished", "run_id", report.RunID,
		"converted", report.Converted, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

// waitReady blocks while the runner is paused and returns an error once the
// context is cancelled.
func (r *Runner) waitReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
