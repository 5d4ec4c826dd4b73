package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_RecoversOnLaterAttempt(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_PerAttemptTimeout(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, Timeout: 10 * time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_ParentCancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ZeroValueRunsOnce(t *testing.T) {
	calls := 0
	var p RetryPolicy
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
