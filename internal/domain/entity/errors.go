package entity

import "errors"

// Domain errors shared across layers. Callers classify with errors.Is.
var (
	// ErrTransient marks a retryable upstream failure (network, timeout, 5xx, 429)
	ErrTransient = errors.New("transient upstream failure")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidCurrency is returned for codes the upstream does not support
	ErrInvalidCurrency = errors.New("unsupported currency")

	ErrNoRateData       = errors.New("no rate data")
	ErrNoTimeSeriesData = errors.New("no time-series data")
	ErrRateNotFound     = errors.New("rate not found")

	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInvalidDateRange  = errors.New("invalid date range")
)

// IsTransient reports whether err is a retryable upstream failure
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsUnavailable reports whether err means the upstream could not be reached,
// either after exhausting retries or because the breaker is open
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrCircuitOpen)
}
