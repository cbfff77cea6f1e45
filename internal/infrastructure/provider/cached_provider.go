// Package provider implements cached, resilient access to the remote rate source
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/domain/repository"
	"github.com/damon-houk/currency-converter/internal/domain/service"
	"github.com/damon-houk/currency-converter/internal/infrastructure/cache"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/damon-houk/currency-converter/internal/infrastructure/metrics"
	"github.com/damon-houk/currency-converter/internal/infrastructure/middleware"
	"github.com/damon-houk/currency-converter/internal/infrastructure/resilience"
	"golang.org/x/sync/singleflight"
)

// Cache lifetimes per kind of data
const (
	SupportedCurrenciesTTL = 12 * time.Hour
	LatestRatesTTL         = 5 * time.Minute
	TimeSeriesTTL          = time.Hour
)

// SupportedCurrenciesKey is the cache key of the currency catalog
const SupportedCurrenciesKey = "SupportedCurrencyCodes"

const allSymbols = "ALL"

// operation labels for logs and metrics
const (
	opCurrencies = "currencies"
	opLatest     = "latest"
	opTimeSeries = "timeseries"
)

// LatestRatesKey builds the cache key for a latest-rates request.
// Symbols are joined in caller order; nil and empty both map to ALL.
func LatestRatesKey(base string, symbols []string) string {
	return "LatestRates:" + base + ":" + symbolsKey(symbols)
}

// TimeSeriesKey builds the cache key for a time-series request
func TimeSeriesKey(base string, start, end time.Time, symbols []string) string {
	return fmt.Sprintf("TimeSeries:%s:%s-%s:%s",
		base,
		start.Format(entity.KeyDateLayout),
		end.Format(entity.KeyDateLayout),
		symbolsKey(symbols))
}

func symbolsKey(symbols []string) string {
	if len(symbols) == 0 {
		return allSymbols
	}
	return strings.Join(symbols, ",")
}

// Options configures a CachedProvider
type Options struct {
	// SingleFlight coalesces concurrent misses on the same key into one upstream call
	SingleFlight bool
	Metrics      *metrics.Metrics
	Logger       logger.Logger
}

// CachedProvider serves exchange rate data from a TTL cache and falls back to the
// remote source through the resilience pipeline on a miss. Expired entries are
// never served; a failed refresh propagates to the caller.
type CachedProvider struct {
	source   service.RateSource
	cache    cache.Store
	pipeline *resilience.Pipeline
	logger   logger.Logger
	metrics  *metrics.Metrics

	singleFlight bool
	group        singleflight.Group
}

var _ repository.ExchangeRateProvider = (*CachedProvider)(nil)

// NewCachedProvider creates a provider over source, caching in store
func NewCachedProvider(source service.RateSource, store cache.Store, pipeline *resilience.Pipeline, opts Options) *CachedProvider {
	if pipeline == nil {
		pipeline = resilience.NewPipeline(nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefaultLogger()
	}

	return &CachedProvider{
		source:       source,
		cache:        store,
		pipeline:     pipeline,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		singleFlight: opts.SingleFlight,
	}
}

// GetSupportedCurrencies returns the currency catalog. An empty catalog is cached like any other.
func (p *CachedProvider) GetSupportedCurrencies(ctx context.Context) (map[string]string, error) {
	return getOrFetch(ctx, p, opCurrencies, SupportedCurrenciesKey, SupportedCurrenciesTTL,
		func(ctx context.Context) (map[string]string, error) {
			return p.source.GetSupportedCurrencies(ctx)
		})
}

// GetLatestRates returns the latest rates for base, or nil when the source has none
func (p *CachedProvider) GetLatestRates(ctx context.Context, base string, symbols []string) (*entity.LatestRates, error) {
	return getOrFetch(ctx, p, opLatest, LatestRatesKey(base, symbols), LatestRatesTTL,
		func(ctx context.Context) (*entity.LatestRates, error) {
			return p.source.GetLatestRates(ctx, base, symbols)
		})
}

// GetTimeSeries returns the rate series for base, or nil when the source has none
func (p *CachedProvider) GetTimeSeries(ctx context.Context, base string, start, end time.Time, symbols []string) (*entity.TimeSeries, error) {
	return getOrFetch(ctx, p, opTimeSeries, TimeSeriesKey(base, start, end, symbols), TimeSeriesTTL,
		func(ctx context.Context) (*entity.TimeSeries, error) {
			return p.source.GetTimeSeries(ctx, base, start, end, symbols)
		})
}

// getOrFetch is the cache-then-fetch path shared by every operation.
// Values are cached JSON-encoded, so each caller decodes a private copy.
func getOrFetch[T any](ctx context.Context, p *CachedProvider, op, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	requestID := middleware.GetRequestID(ctx)

	data, hit := p.lookup(ctx, op, key)
	if !hit {
		var err error
		if p.singleFlight {
			// the shared fetch outlives any one caller; each caller stops waiting on its own ctx
			detached := context.WithoutCancel(ctx)
			ch := p.group.DoChan(key, func() (interface{}, error) {
				return p.load(detached, op, key, ttl, func(ctx context.Context) (interface{}, error) {
					return fetch(ctx)
				})
			})

			var res singleflight.Result
			select {
			case res = <-ch:
			case <-ctx.Done():
				return zero, fmt.Errorf("failed to fetch %s: %w", key, ctx.Err())
			}

			err = res.Err
			if err == nil {
				data = res.Val.([]byte)
			}
			if res.Shared {
				p.logger.Debug("Shared in-flight upstream call", map[string]interface{}{
					"request_id": requestID,
					"key":        key,
				})
			}
		} else {
			data, err = p.load(ctx, op, key, ttl, func(ctx context.Context) (interface{}, error) {
				return fetch(ctx)
			})
		}
		if err != nil {
			return zero, err
		}
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return value, nil
}

func (p *CachedProvider) lookup(ctx context.Context, op, key string) ([]byte, bool) {
	data, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("Cache read failed, treating as miss", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"key":        key,
			"error":      err.Error(),
		})
		ok = false
	}

	p.metrics.ObserveCache(op, ok)
	return data, ok
}

// load fetches through the pipeline, encodes the result and stores it.
// A cache write failure is logged and the fresh value is still returned.
func (p *CachedProvider) load(ctx context.Context, op, key string, ttl time.Duration, fetch func(context.Context) (interface{}, error)) ([]byte, error) {
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	value, err := resilience.Run(ctx, p.pipeline, fetch)
	if err != nil {
		p.metrics.ObserveUpstream(op, classify(err))
		p.logger.Error("Failed to fetch from rate source", map[string]interface{}{
			"request_id":  requestID,
			"operation":   op,
			"key":         key,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		p.metrics.ObserveUpstream(op, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	outcome := metrics.OutcomeSuccess
	if bytes.Equal(data, []byte("null")) {
		outcome = metrics.OutcomeNoData
	}
	p.metrics.ObserveUpstream(op, outcome)

	if err := p.cache.Set(ctx, key, data, ttl); err != nil {
		p.logger.Warn("Failed to store value in cache", map[string]interface{}{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		})
	}

	p.logger.Info("Fetched from rate source", map[string]interface{}{
		"request_id":  requestID,
		"operation":   op,
		"key":         key,
		"outcome":     outcome,
		"ttl":         ttl.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return data, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, entity.ErrCircuitOpen):
		return metrics.OutcomeCircuitOpen
	case errors.Is(err, entity.ErrTransient):
		return metrics.OutcomeTransient
	case errors.Is(err, entity.ErrInvalidCurrency):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
