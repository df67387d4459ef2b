package worker

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jdziat/cronloop/pkg/core"
)

// RetryConfig holds configuration for retry with backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 5
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	// Default: 100ms
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 5s
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier applied to backoff after each attempt.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the fraction of backoff to randomize (0.0 to 1.0).
	// Default: 0.1 (10% jitter)
	JitterFraction float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// noRetry runs a task exactly once.
var noRetry = RetryConfig{MaxAttempts: 1}

// retryWithBackoff executes the operation with exponential backoff on failure.
// A *core.NoRetryError stops immediately; a *core.RetryAfterError replaces the
// computed backoff with its delay. It returns the number of attempts made and
// the last error.
func retryWithBackoff(ctx context.Context, config RetryConfig, operation func(attempt int) error) (int, error) {
	var lastErr error
	backoff := config.InitialBackoff

	attempt := 1
	for ; ; attempt++ {
		lastErr = operation(attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if !IsRetryableError(lastErr) || attempt >= config.MaxAttempts {
			return attempt, lastErr
		}

		sleepDuration := backoff
		var retryAfter *core.RetryAfterError
		if errors.As(lastErr, &retryAfter) {
			sleepDuration = retryAfter.Delay
		} else {
			jitter := time.Duration(float64(backoff) * config.JitterFraction * (rand.Float64()*2 - 1))
			if backoff+jitter >= 0 {
				sleepDuration = backoff + jitter
			}
		}

		timer := time.NewTimer(sleepDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
}

// IsRetryableError determines if an error is worth retrying.
// Returns false for nil, context errors and errors wrapped with core.NoRetry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var permanent *core.NoRetryError
	return !errors.As(err, &permanent)
}
