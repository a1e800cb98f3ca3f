package form

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig holds retry configuration for a Transfer.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig performs a single attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   1,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = d.BackoffFactor
	}
	return c
}

// Retrying wraps t so a failed attempt is repeated with exponential backoff.
// Context errors are never retried.
func Retrying(t Transfer, cfg RetryConfig, logger *slog.Logger) Transfer {
	cfg = cfg.withDefaults()
	if cfg.MaxAttempts == 1 {
		return t
	}

	return func(ctx context.Context, req Request) error {
		var lastErr error
		delay := cfg.InitialDelay

		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			err := t(ctx, req)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err

			// Don't wait after the last attempt
			if attempt == cfg.MaxAttempts {
				break
			}

			logger.Warn("transfer attempt failed, retrying",
				"session_id", req.SessionID,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}

			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		return lastErr
	}
}
