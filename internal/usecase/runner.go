package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// runnerLockName is the advisory lock claimed before each pass. The engine
// has no defense against two concurrent instances reading the same watermark
// and double-applying contributions, so exactly one runner may be active.
const runnerLockName = "pnl-runner"

// Runner drives repeated processor passes until the context is cancelled,
// backing off for idleDelay when a full pass found no work.
type Runner struct {
	processor *BatchProcessor
	lock      RunnerLock
	idleDelay time.Duration
	logger    zerolog.Logger
}

// NewRunner creates a new Runner.
func NewRunner(processor *BatchProcessor, lock RunnerLock, idleDelay time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{
		processor: processor,
		lock:      lock,
		idleDelay: idleDelay,
		logger:    logger,
	}
}

// Run loops passes until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		processed := 0

		acquired, err := r.lock.Acquire(ctx, runnerLockName)
		if err != nil {
			r.logger.Warn().Err(err).Msg("failed to acquire runner lock")
		} else if !acquired {
			r.logger.Debug().Msg("another runner holds the lock, skipping pass")
		} else {
			processed = r.processor.ProcessAll(ctx)

			if err := r.lock.Release(ctx, runnerLockName); err != nil {
				r.logger.Warn().Err(err).Msg("failed to release runner lock")
			}
		}

		if processed == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.idleDelay):
			}
		}
	}
}
