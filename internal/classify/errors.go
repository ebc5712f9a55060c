package classify

import (
	"errors"
	"fmt"
	"time"
)

// ErrCreditExhausted signals that the provider's metered quota is depleted.
// The queue must stop submitting new batches immediately; results obtained
// so far remain valid.
var ErrCreditExhausted = errors.New("classification credits exhausted")

// RateLimitError signals a 429-equivalent response. The caller should back
// off for RetryAfter (or its own exponential delay) and retry; it does not
// abort the queue.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// TransientError wraps a network or service failure that is safe to retry
// with bounded backoff.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient classification error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError signals that the remote service returned content
// that does not parse as the expected payload. The client degrades the
// affected photos to low-confidence placeholders instead of failing them.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return "malformed classification response: " + e.Detail
}

// IsRateLimited reports whether err is a rate-limit signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsCreditExhausted reports whether err is the credit-exhaustion signal.
func IsCreditExhausted(err error) bool { return errors.Is(err, ErrCreditExhausted) }

// IsTransient reports whether err is retryable with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
