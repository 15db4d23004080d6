package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PollConfig bounds a fixed-interval polling loop.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
	// Wait suspends between attempts. Defaults to Sleep.
	Wait func(ctx context.Context, d time.Duration) error
}

// PollFunc performs one attempt. done=true ends the loop successfully; a non-nil
// error or done=false counts as one failed attempt.
type PollFunc func(ctx context.Context, attempt int) (done bool, err error)

// ExhaustedError is returned by Poll after MaxAttempts failed attempts.
type ExhaustedError struct {
	Operation string
	Attempts  int
	LastErr   error
}

func (e *ExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Operation, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("%s: gave up after %d attempts", e.Operation, e.Attempts)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Poll calls fn until it reports done, the attempt budget runs out, or ctx is cancelled.
// There is no wait after the final attempt.
func Poll(ctx context.Context, cfg PollConfig, logger *zap.Logger, operation string, fn PollFunc) error {
	wait := cfg.Wait
	if wait == nil {
		wait = Sleep
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		done, err := fn(ctx, attempt)
		if err == nil && done {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Debug("Poll attempt not finished, waiting",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("retry_in", cfg.Interval),
			zap.Error(err))

		if err := wait(ctx, cfg.Interval); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}
	}

	return &ExhaustedError{Operation: operation, Attempts: cfg.MaxAttempts, LastErr: lastErr}
}
