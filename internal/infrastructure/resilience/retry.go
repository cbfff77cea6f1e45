// Package resilience provides the retry and circuit breaker policies that guard
// calls to the remote rate source.
package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
)

// Default retry settings: three retries waiting 2s, 4s and 8s
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// RetryConfig configures a Retry policy. A zero BaseDelay falls back to DefaultBaseDelay.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration

	// ShouldRetry classifies errors. Defaults to entity.IsTransient.
	ShouldRetry func(error) bool

	// Sleep waits between attempts and must return early when ctx is done
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Retry re-runs an operation on retryable failures with exponential backoff.
// The wait before retry n is BaseDelay * 2^n. The first attempt runs immediately.
type Retry struct {
	maxRetries  int
	baseDelay   time.Duration
	shouldRetry func(error) bool
	sleep       func(ctx context.Context, d time.Duration) error
	onRetry     func(attempt int, delay time.Duration, err error)
}

// NewRetry creates a retry policy
func NewRetry(cfg RetryConfig) *Retry {
	r := &Retry{
		maxRetries:  cfg.MaxRetries,
		baseDelay:   cfg.BaseDelay,
		shouldRetry: cfg.ShouldRetry,
		sleep:       cfg.Sleep,
		onRetry:     cfg.OnRetry,
	}

	if r.maxRetries < 0 {
		r.maxRetries = 0
	}
	if r.baseDelay <= 0 {
		r.baseDelay = DefaultBaseDelay
	}
	if r.shouldRetry == nil {
		r.shouldRetry = entity.IsTransient
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

// MaxDelay is the longest wait Backoff returns; larger delays saturate here
const MaxDelay = time.Duration(math.MaxInt64)

// Backoff returns the wait before the given retry, counting retries from 1
func (r *Retry) Backoff(retry int) time.Duration {
	shift := uint(retry)
	if shift >= 63 || r.baseDelay > MaxDelay>>shift {
		return MaxDelay
	}
	return r.baseDelay << shift
}

// MaxRetries returns the number of retries after the first attempt
func (r *Retry) MaxRetries() int {
	return r.maxRetries
}

// Execute runs fn, retrying while it fails with a retryable error and the budget allows.
// The last error is returned unchanged when the budget is exhausted.
func (r *Retry) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)

	for retry := 1; retry <= r.maxRetries; retry++ {
		if err == nil || !r.shouldRetry(err) {
			return err
		}

		delay := r.Backoff(retry)
		if r.onRetry != nil {
			r.onRetry(retry, delay, err)
		}

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("retry aborted: %w (last error: %w)", sleepErr, err)
		}

		err = fn(ctx)
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
