package classify

import (
	"context"
	"errors"
	"time"
)

// RetryConfig bounds the retry loop for transient remote failures.
type RetryConfig struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt, doubled each retry
}

// DefaultRetryConfig matches the observed provider behavior: three attempts
// with 2s/4s backoff between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// Retry runs op with exponential backoff. Only transient and rate-limit
// errors are retried; credit exhaustion and any other error abort
// immediately. A rate-limit error with a server-provided Retry-After uses
// that delay instead of the exponential one.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if IsCreditExhausted(err) {
			return err
		}
		if !IsTransient(err) && !IsRateLimited(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return err
		}

		wait := delay
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
}
