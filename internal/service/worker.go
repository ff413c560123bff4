package service

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/unclebandit/cadence-backend/internal/errors"
	"github.com/unclebandit/cadence-backend/internal/logging"
)

// CycleRunner is the dispatch entry point the timer drives.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (*CycleResult, error)
}

// Worker runs a dispatch cycle on every tick of a fixed interval
type Worker struct {
	Runner   CycleRunner
	Clock    Clock
	Interval time.Duration
	Logger   logging.Logger
}

// Constructor
func NewWorker(runner CycleRunner, interval time.Duration, clock Clock, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{
		Runner:   runner,
		Clock:    clock,
		Interval: interval,
		Logger:   logger,
	}
}

// Start runs one cycle immediately, then one per interval until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.Logger.WithField("interval", w.Interval.String()).Info("⏱️ scheduler started")
	w.Tick(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs a single cycle. Failures are logged and never stop the timer.
func (w *Worker) Tick(ctx context.Context) {
	_, err := w.Runner.RunCycle(ctx, nowFrom(w.Clock))
	switch {
	case err == nil:
	case errors.Is(err, appErrors.ErrCycleInProgress):
		w.Logger.Debug("previous dispatch cycle still running, skipping tick")
	case errors.Is(err, context.Canceled):
	default:
		w.Logger.WithError(err).Error("❌ scheduled dispatch cycle failed")
	}
}
