package starcat

import (
	"context"
	"time"
)

// DefaultRetryDelays returns the backoff delays for external calls: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// RetryFunc is called after a failed attempt, before waiting.
type RetryFunc func(attempt int, err error)

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// delays are exhausted (1 initial attempt + len(delays) retries). The last
// error is returned. onRetry may be nil.
func Retry[T any](ctx context.Context, delays []time.Duration, onRetry RetryFunc, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt >= maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		if onRetry != nil {
			onRetry(attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return zero, lastErr
}
