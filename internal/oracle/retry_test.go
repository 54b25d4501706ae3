package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &TransientError{cause: errors.New("boom")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &TransientError{cause: errors.New("boom")}
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}

func TestRetryPolicyFormatErrorPolicy(t *testing.T) {
	formatErr := &FormatError{Raw: "garbage"}

	t.Run("retried when enabled", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, RetryFormatErrors: true}
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return formatErr
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("immediate when disabled", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return formatErr
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicyNonRetryableError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	sentinel := errors.New("validation failed")
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyZeroValueStillRunsOnce(t *testing.T) {
	var policy RetryPolicy

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &TransientError{cause: errors.New("boom")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyContextCancelled(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(ctx context.Context) error {
		return &TransientError{cause: errors.New("boom")}
	})

	assert.ErrorIs(t, err, context.Canceled)
}
