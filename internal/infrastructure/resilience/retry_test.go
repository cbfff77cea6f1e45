package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func transientErr(msg string) error {
	return fmt.Errorf("%s: %w", msg, entity.ErrTransient)
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("Success on first attempt does not wait", func(t *testing.T) {
		// Setup
		rec := &sleepRecorder{}
		retry := NewRetry(RetryConfig{MaxRetries: 3, Sleep: rec.sleep})
		calls := 0

		// Execute
		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			return nil
		})

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("Transient failures are retried with exponential backoff", func(t *testing.T) {
		rec := &sleepRecorder{}
		retry := NewRetry(RetryConfig{MaxRetries: 3, Sleep: rec.sleep})
		calls := 0

		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return transientErr("connection reset")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
	})

	t.Run("Budget exhausted returns the last error", func(t *testing.T) {
		rec := &sleepRecorder{}
		var retried []int
		retry := NewRetry(RetryConfig{
			MaxRetries: 3,
			Sleep:      rec.sleep,
			OnRetry: func(attempt int, _ time.Duration, _ error) {
				retried = append(retried, attempt)
			},
		})
		calls := 0

		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			return transientErr(fmt.Sprintf("attempt %d", calls))
		})

		assert.ErrorIs(t, err, entity.ErrTransient)
		assert.Contains(t, err.Error(), "attempt 4")
		assert.Equal(t, 4, calls)
		assert.Equal(t, []int{1, 2, 3}, retried)
		assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.delays)
	})

	t.Run("Non-transient errors are not retried", func(t *testing.T) {
		rec := &sleepRecorder{}
		retry := NewRetry(RetryConfig{MaxRetries: 3, Sleep: rec.sleep})
		calls := 0

		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			return fmt.Errorf("code XYZ: %w", entity.ErrInvalidCurrency)
		})

		assert.ErrorIs(t, err, entity.ErrInvalidCurrency)
		assert.Equal(t, 1, calls)
		assert.Empty(t, rec.delays)
	})

	t.Run("Cancellation during backoff stops retrying", func(t *testing.T) {
		rec := &sleepRecorder{err: context.Canceled}
		retry := NewRetry(RetryConfig{MaxRetries: 3, Sleep: rec.sleep})
		calls := 0

		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			return transientErr("timeout")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, entity.ErrTransient)
		assert.Equal(t, 1, calls)
	})

	t.Run("Zero retries runs once", func(t *testing.T) {
		retry := NewRetry(RetryConfig{MaxRetries: 0})
		calls := 0

		err := retry.Execute(ctx, func(context.Context) error {
			calls++
			return transientErr("down")
		})

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryBackoff(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: DefaultMaxRetries})

	assert.Equal(t, 3, retry.MaxRetries())
	assert.Equal(t, 2*time.Second, retry.Backoff(1))
	assert.Equal(t, 4*time.Second, retry.Backoff(2))
	assert.Equal(t, 8*time.Second, retry.Backoff(3))

	fast := NewRetry(RetryConfig{BaseDelay: time.Millisecond})
	assert.Equal(t, 2*time.Millisecond, fast.Backoff(1))

	// large retry counts saturate instead of wrapping
	assert.Equal(t, MaxDelay, retry.Backoff(63))
	assert.Equal(t, MaxDelay, retry.Backoff(100))
	assert.Equal(t, MaxDelay, retry.Backoff(40))
	assert.Equal(t, 1024*time.Second, retry.Backoff(10))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Hour)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
