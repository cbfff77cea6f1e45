package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 13, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return transientErr("upstream 503")
	}
}

func succeeding(calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return nil
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	// Setup
	clock := newFakeClock()
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, BreakDuration: time.Minute, Now: clock.Now})
	ctx := context.Background()
	calls := 0

	// Execute
	assert.ErrorIs(t, cb.Execute(ctx, failing(&calls)), entity.ErrTransient)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, failing(&calls)), entity.ErrTransient)

	// Assert
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, succeeding(&calls))
	assert.ErrorIs(t, err, entity.ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open breaker must not invoke the operation")

	clock.Advance(59 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeeding(&calls)), entity.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2})
	ctx := context.Background()
	calls := 0

	_ = cb.Execute(ctx, failing(&calls))
	require.NoError(t, cb.Execute(ctx, succeeding(&calls)))
	_ = cb.Execute(ctx, failing(&calls))

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 3, calls)
}

func TestCircuitBreakerIgnoresNonTransientErrors(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2})
	ctx := context.Background()
	invalid := func(context.Context) error { return entity.ErrInvalidCurrency }

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, invalid), entity.ErrInvalidCurrency)
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T) (*CircuitBreaker, *fakeClock) {
		clock := newFakeClock()
		cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, BreakDuration: time.Minute, Now: clock.Now})
		calls := 0
		_ = cb.Execute(ctx, failing(&calls))
		_ = cb.Execute(ctx, failing(&calls))
		require.Equal(t, StateOpen, cb.State())
		return cb, clock
	}

	t.Run("Successful trial closes the breaker", func(t *testing.T) {
		cb, clock := open(t)
		clock.Advance(time.Minute)

		calls := 0
		assert.NoError(t, cb.Execute(ctx, succeeding(&calls)))
		assert.Equal(t, 1, calls)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("Failed trial reopens for a full break", func(t *testing.T) {
		cb, clock := open(t)
		clock.Advance(time.Minute)

		calls := 0
		assert.ErrorIs(t, cb.Execute(ctx, failing(&calls)), entity.ErrTransient)
		assert.Equal(t, StateOpen, cb.State())

		clock.Advance(30 * time.Second)
		assert.ErrorIs(t, cb.Execute(ctx, succeeding(&calls)), entity.ErrCircuitOpen)
		assert.Equal(t, 1, calls)
	})

	t.Run("Only one trial is admitted at a time", func(t *testing.T) {
		cb, clock := open(t)
		clock.Advance(time.Minute)

		var concurrentErr error
		err := cb.Execute(ctx, func(ctx context.Context) error {
			concurrentErr = cb.Execute(ctx, func(context.Context) error {
				return errors.New("must not run")
			})
			return nil
		})

		assert.NoError(t, err)
		assert.ErrorIs(t, concurrentErr, entity.ErrCircuitOpen)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("State reports half-open once the break elapsed", func(t *testing.T) {
		cb, clock := open(t)
		clock.Advance(61 * time.Second)
		assert.Equal(t, StateHalfOpen, cb.State())
	})
}

func TestCircuitBreakerStateChangeHook(t *testing.T) {
	clock := newFakeClock()
	var changes []string
	cb := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 2,
		BreakDuration:    time.Minute,
		Now:              clock.Now,
		OnStateChange: func(from, to State) {
			changes = append(changes, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()
	calls := 0

	_ = cb.Execute(ctx, failing(&calls))
	_ = cb.Execute(ctx, failing(&calls))
	clock.Advance(time.Minute)
	_ = cb.Execute(ctx, succeeding(&calls))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, changes)
}

func TestCircuitBreakerConcurrentUse(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute(ctx, func(context.Context) error {
				if i%2 == 0 {
					return transientErr("flaky")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen}, cb.State())
}
