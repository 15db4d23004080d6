package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Config bounds WithBackoff. Delays grow by Multiplier from InitialDelay up to MaxDelay.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterEnabled bool
}

// DefaultConfig returns the settings used when dialing backing stores.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		JitterEnabled: true,
	}
}

// WithBackoff calls fn up to cfg.MaxRetries times and returns nil on the first success.
// The error after the last attempt names operation and wraps fn's error.
func WithBackoff(ctx context.Context, cfg Config, logger *zap.Logger, operation string, fn func() error) error {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		err := fn()
		switch {
		case err == nil:
			if attempt > 1 {
				logger.Info("Connected after retries",
					zap.String("operation", operation),
					zap.Int("attempts", attempt))
			}
			return nil
		case attempt >= cfg.MaxRetries:
			return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
		}

		delay := cfg.delay(attempt)
		logger.Warn("Attempt failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}
	}
}

// delay is the wait after the given failed attempt, with up to 15% jitter either way.
func (cfg Config) delay(attempt int) time.Duration {
	d := math.Min(
		float64(cfg.InitialDelay)*math.Pow(cfg.Multiplier, float64(attempt-1)),
		float64(cfg.MaxDelay),
	)
	if cfg.JitterEnabled {
		d *= 0.85 + 0.3*rand.Float64()
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
