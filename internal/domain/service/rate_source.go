package service

import (
	"context"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
)

// RateSource is the remote currency-data service.
// A nil result with a nil error means the source answered but had no data.
type RateSource interface {
	// GetSupportedCurrencies lists supported codes with their display names
	GetSupportedCurrencies(ctx context.Context) (map[string]string, error)

	// GetLatestRates returns the latest rates for base, optionally restricted to symbols
	GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error)

	// GetTimeSeries returns daily rates for base between start and end inclusive
	GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error)
}
