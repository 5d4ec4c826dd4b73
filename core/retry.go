package core

import (
	"context"
	"time"
)

// RetryPolicy bounds calls to opaque collaborators (embedding, generation,
// tools). Each attempt runs under its own timeout; attempts and backoff are
// explicit so timeout/retry behavior is testable in isolation rather than
// buried in ad hoc error swallowing.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, minimum 1
	Backoff     time.Duration // fixed delay between attempts
	Timeout     time.Duration // per-attempt deadline, 0 disables
}

// DefaultRetryPolicy returns the policy applied to collaborator calls when
// the caller does not configure one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 200 * time.Millisecond, Timeout: 15 * time.Second}
}

// Do runs op under the policy. It returns nil on the first successful
// attempt, the parent context error immediately on cancellation, and the
// last attempt's error once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		lastErr = op(attemptCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if p.Backoff > 0 && i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return lastErr
}
