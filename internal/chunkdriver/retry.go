package chunkdriver

import (
	"context"
	"time"
)

// RetryConfig parameterizes WithRetry's exponential backoff.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig matches the original pipeline's retry_with_backoff
// defaults (3 retries, 1s initial delay, factor 2).
var DefaultRetryConfig = RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BackoffFactor: 2.0}

// WithRetry wraps fn with exponential backoff: delay_n = initial *
// factor^n, up to MaxRetries attempts beyond the first. The last error is
// re-surfaced if every attempt fails. ctx cancellation aborts the wait
// between attempts immediately.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
	}
	return lastErr
}
