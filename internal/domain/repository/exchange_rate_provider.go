// Package repository internal/domain/repository/exchange_rate_provider.go
package repository

import (
	"context"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
)

// ExchangeRateProvider defines cached, resilient access to exchange rate data.
// Results are snapshots; callers may keep them for the duration of a request.
type ExchangeRateProvider interface {
	// GetSupportedCurrencies returns the supported currency catalog
	GetSupportedCurrencies(ctx context.Context) (map[string]string, error)

	// GetLatestRates returns the latest rates for base, or nil when the upstream has none
	GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error)

	// GetTimeSeries returns the rate series for base, or nil when the upstream has none
	GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error)
}
