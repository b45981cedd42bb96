package lloyds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestPolicyRetriesTransientFailures(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 4, BaseDelay: time.Second, Sleep: noSleep(&delays)}

	attempts := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return NewAdapterError(ErrTimeout, "register", "deadline exceeded", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays, "delay doubles")
}

func TestPolicyStopsOnNonRetryable(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Second, Sleep: noSleep(&delays)}

	attempts := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		return NewAdapterError(ErrUnauthorized, "register", "bad credentials", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep(&delays)}

	attempts := 0
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		return NewAdapterError(ErrRateLimited, "report_incident", "throttled", nil)
	})

	require.Error(t, err)
	var ae *AdapterError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ErrRateLimited, ae.Kind)
	assert.Equal(t, 3, attempts)
	assert.Len(t, delays, 2, "no sleep after the final attempt")
}

func TestPolicyHonorsContextDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	attempts := 0
	err := policy.Do(ctx, func(context.Context) error {
		attempts++
		return NewAdapterError(ErrTimeout, "status", "deadline exceeded", nil)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAdapterError(ErrTimeout, "op", "m", nil)))
	assert.True(t, IsRetryable(NewAdapterError(ErrHTTP, "op", "m", nil)))
	assert.True(t, IsRetryable(NewAdapterError(ErrRateLimited, "op", "m", nil)))
	assert.False(t, IsRetryable(NewAdapterError(ErrUnauthorized, "op", "m", nil)))
	assert.False(t, IsRetryable(NewAdapterError(ErrMalformed, "op", "m", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}
