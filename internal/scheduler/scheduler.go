// Package scheduler runs a job each time a trigger fires.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job is one unit of scheduled work. It receives a context bounded only by
// the per-run timeout: cancelling Run's context never interrupts a job that
// has already started.
type Job func(ctx context.Context)

type Options struct {
	// Timeout bounds a single run. Zero means no bound beyond ctx.
	Timeout time.Duration
	// RunOnStart fires the job once before waiting on the trigger.
	RunOnStart bool
	Logger     *slog.Logger
}

// Run executes job once per value received on trigger until ctx is done or
// trigger is closed. Runs happen one after another on the calling
// goroutine, so a tick that arrives while a run is in progress waits for it
// and ticks dropped by the trigger are never replayed. Cancellation is only
// observed between runs. A panicking job is logged and does not stop the
// loop.
func Run(ctx context.Context, trigger <-chan time.Time, job Job, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.RunOnStart && ctx.Err() == nil {
		runOnce(ctx, job, opts.Timeout, logger)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-trigger:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			runOnce(ctx, job, opts.Timeout, logger)
		}
	}
}

func runOnce(ctx context.Context, job Job, timeout time.Duration, logger *slog.Logger) {
	runCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled job panicked", "panic", fmt.Sprint(r))
		}
	}()

	job(runCtx)
}

// Ticker is a trigger backed by time.Ticker.
type Ticker struct {
	ticker *time.Ticker
}

func NewTicker(interval time.Duration) (*Ticker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	return &Ticker{ticker: time.NewTicker(interval)}, nil
}

func (t *Ticker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *Ticker) Stop() {
	t.ticker.Stop()
}
