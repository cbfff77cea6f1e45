package resilience

import (
	"context"
)

// Pipeline composes a circuit breaker around a retry policy.
// The breaker sees one outcome per Execute: the net result of all retry attempts.
type Pipeline struct {
	breaker *CircuitBreaker
	retry   *Retry
}

// NewPipeline creates a pipeline. A nil retry disables retries, a nil breaker disables breaking.
func NewPipeline(breaker *CircuitBreaker, retry *Retry) *Pipeline {
	return &Pipeline{
		breaker: breaker,
		retry:   retry,
	}
}

// Breaker returns the pipeline's circuit breaker, which may be nil
func (p *Pipeline) Breaker() *CircuitBreaker {
	return p.breaker
}

// Execute runs fn through the retry policy inside the circuit breaker
func (p *Pipeline) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	call := fn
	if p.retry != nil {
		call = func(ctx context.Context) error {
			return p.retry.Execute(ctx, fn)
		}
	}

	if p.breaker != nil {
		return p.breaker.Execute(ctx, call)
	}
	return call(ctx)
}

// Run executes fn through the pipeline and returns its value
func Run[T any](ctx context.Context, p *Pipeline, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
