package retry

// Package retry provides the single bounded-backoff helper used by all
// provider write operations. Read-path resolution never retries; page loads
// stay responsive by degrading instead.

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the delay before the second attempt; it doubles each retry.
	BaseDelay time.Duration
}

// DefaultWritePolicy matches the provider write budget: 3 attempts,
// 1s base delay, doubling.
func DefaultWritePolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: time.Second}
}

// Retryable reports whether an error should be retried.
type Retryable func(err error) bool

// Do runs fn under the policy, sleeping with exponential backoff between
// attempts. It stops early when fn succeeds, when retryable reports the error
// as permanent, or when ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, retryable Retryable, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			// Keep the failure that put us in the backoff: callers classify
			// on the operation error, not just the context state.
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}
