package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how transient provider failures are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times starting from a two second delay.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second}

// WithRetry calls fn until it succeeds, returns a non-transient error or the
// policy is exhausted. Only errors wrapping ErrTransientFailure are retried.
//
// The delay before retry n is BaseDelay * 2^n scaled by a random factor
// between 0.5 and 1.0.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(ctx context.Context) (string, error)) (string, error) {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultRetryPolicy.MaxRetries
	}
	baseDelay := policy.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultRetryPolicy.BaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		text, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.InfoContext(ctx, "LLM call succeeded after retry", "attempt", attempt+1)
			}
			return text, nil
		}

		if !errors.Is(err, ErrTransientFailure) {
			return "", err
		}
		if attempt >= maxRetries {
			logger.WarnContext(ctx, "maximum retry attempts reached", "max_retries", maxRetries, "error", err)
			return "", fmt.Errorf("exceeded maximum retry attempts (%d): %w", maxRetries, err)
		}

		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		logger.InfoContext(ctx, "retrying LLM call after transient error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
}
