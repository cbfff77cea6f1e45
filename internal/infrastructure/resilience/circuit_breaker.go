package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
)

// Default breaker settings
const (
	DefaultFailureThreshold = 2
	DefaultBreakDuration    = time.Minute
)

// State is the circuit breaker state
type State int

const (
	// StateClosed lets every call through
	StateClosed State = iota
	// StateOpen rejects every call until the break duration elapses
	StateOpen
	// StateHalfOpen lets a single trial call through
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker
type BreakerConfig struct {
	FailureThreshold int
	BreakDuration    time.Duration

	// IsFailure decides which errors count against the breaker. Defaults to entity.IsTransient.
	IsFailure func(error) bool

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	// OnStateChange is called after each transition, outside the breaker lock
	OnStateChange func(from, to State)
}

// CircuitBreaker fails fast once the guarded dependency keeps failing.
//
// Closed: consecutive failures are counted and the breaker opens at the threshold.
// Open: calls are rejected with entity.ErrCircuitOpen until BreakDuration has passed.
// HalfOpen: one trial call is admitted; success closes the breaker, failure reopens it.
// Errors that are not failures (for example an invalid currency) count as successes
// because the dependency did respond.
type CircuitBreaker struct {
	mu sync.Mutex

	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
	generation    uint64

	threshold     int
	breakDuration time.Duration
	isFailure     func(error) bool
	now           func() time.Time
	onStateChange func(from, to State)
}

type transition struct {
	from, to State
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:         StateClosed,
		threshold:     cfg.FailureThreshold,
		breakDuration: cfg.BreakDuration,
		isFailure:     cfg.IsFailure,
		now:           cfg.Now,
		onStateChange: cfg.OnStateChange,
	}

	if cb.threshold <= 0 {
		cb.threshold = DefaultFailureThreshold
	}
	if cb.breakDuration <= 0 {
		cb.breakDuration = DefaultBreakDuration
	}
	if cb.isFailure == nil {
		cb.isFailure = entity.IsTransient
	}
	if cb.now == nil {
		cb.now = time.Now
	}
	return cb
}

// State returns the current state, moving Open to HalfOpen when the break has elapsed
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	var changes []transition
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.breakDuration {
		changes = append(changes, cb.setState(StateHalfOpen))
	}
	state := cb.state
	cb.mu.Unlock()

	cb.notify(changes)
	return state
}

// Execute runs fn if the breaker admits the call and records its outcome
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	generation, err := cb.before()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.after(generation, err)
	return err
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()
	var changes []transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changes)
	}()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.breakDuration {
			return 0, entity.ErrCircuitOpen
		}
		changes = append(changes, cb.setState(StateHalfOpen))
		cb.trialInFlight = true
	case StateHalfOpen:
		if cb.trialInFlight {
			return 0, entity.ErrCircuitOpen
		}
		cb.trialInFlight = true
	}

	return cb.generation, nil
}

func (cb *CircuitBreaker) after(generation uint64, err error) {
	cb.mu.Lock()
	var changes []transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(changes)
	}()

	// outcome of a call admitted under a previous state
	if generation != cb.generation {
		return
	}

	failed := err != nil && cb.isFailure(err)

	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.threshold {
			changes = append(changes, cb.setState(StateOpen))
		}
	case StateHalfOpen:
		cb.trialInFlight = false
		if failed {
			changes = append(changes, cb.setState(StateOpen))
		} else {
			changes = append(changes, cb.setState(StateClosed))
		}
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(to State) transition {
	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures = 0

	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if to != StateHalfOpen {
		cb.trialInFlight = false
	}
	return transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.onStateChange == nil {
		return
	}
	for _, c := range changes {
		cb.onStateChange(c.from, c.to)
	}
}
