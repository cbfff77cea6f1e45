// Package service internal/application/service/conversion_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/domain/repository"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/damon-houk/currency-converter/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// HistoricalRatesPath is the route that next-page cursors point at
const HistoricalRatesPath = "/api/v1/exchange-rates/historical"

// ConvertedAmountPlaces is the rounding precision of converted amounts
const ConvertedAmountPlaces = 6

// ConversionService converts amounts and pages through historical rates.
// It keeps no state; every provider response is treated as a snapshot.
type ConversionService struct {
	provider repository.ExchangeRateProvider
	logger   logger.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(provider repository.ExchangeRateProvider, log logger.Logger) *ConversionService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ConversionService{
		provider: provider,
		logger:   log,
	}
}

// ListSupportedCurrencies returns the supported currencies ordered by code
func (s *ConversionService) ListSupportedCurrencies(ctx context.Context) ([]entity.SupportedCurrency, error) {
	catalog, err := s.provider.GetSupportedCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get supported currencies: %w", err)
	}

	currencies := make([]entity.SupportedCurrency, 0, len(catalog))
	for code, name := range catalog {
		currencies = append(currencies, entity.SupportedCurrency{Code: code, Name: name})
	}
	sort.Slice(currencies, func(i, j int) bool {
		return currencies[i].Code < currencies[j].Code
	})

	return currencies, nil
}

// Convert converts amount from one currency to another at the latest rate.
// The result is rounded to six places, half away from zero.
func (s *ConversionService) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*entity.ConversionResult, error) {
	requestID := middleware.GetRequestID(ctx)

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s must be greater than zero", entity.ErrInvalidAmount, amount)
	}

	s.logger.Info("Converting currency", map[string]interface{}{
		"request_id": requestID,
		"from":       from,
		"to":         to,
		"amount":     amount.String(),
	})

	latest, err := s.provider.GetLatestRates(ctx, from, []string{to})
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("%w for %s", entity.ErrNoRateData, from)
	}

	rate, ok := latest.RateFor(to)
	if !ok {
		s.logger.Warn("Requested rate missing from upstream response", map[string]interface{}{
			"request_id": requestID,
			"from":       from,
			"to":         to,
		})
		return nil, fmt.Errorf("%w for %s", entity.ErrRateNotFound, to)
	}

	timestamp, err := time.Parse(entity.DateLayout, latest.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate date %q: %w", latest.Date, err)
	}

	converted := amount.Mul(rate).Round(ConvertedAmountPlaces)

	s.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"from":             from,
		"to":               to,
		"original_amount":  amount.String(),
		"exchange_rate":    rate.String(),
		"converted_amount": converted.String(),
		"rate_date":        latest.Date,
	})

	return &entity.ConversionResult{
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		OriginalAmount:   amount,
		ConvertedAmount:  converted,
		Rate:             rate,
		Timestamp:        timestamp,
	}, nil
}

// GetLatestRates returns the latest rates for a base currency.
// It returns entity.ErrNoRateData when the provider has nothing for the code.
func (s *ConversionService) GetLatestRates(ctx context.Context, currencyCode string) (*entity.LatestRates, error) {
	latest, err := s.provider.GetLatestRates(ctx, currencyCode, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rates: %w", err)
	}
	if latest == nil {
		return nil, fmt.Errorf("%w for %s", entity.ErrNoRateData, currencyCode)
	}
	return latest, nil
}

// GetHistoricalRatesPaged returns one page of the daily rates between start and end.
// Dates are ordered ascending; a page past the end is empty rather than an error.
func (s *ConversionService) GetHistoricalRatesPaged(ctx context.Context, start, end time.Time, currencyCode string, pageNumber, pageSize int) (*entity.PagedHistoricalRates, error) {
	requestID := middleware.GetRequestID(ctx)

	if pageNumber < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page %d, size %d", entity.ErrInvalidPagination, pageNumber, pageSize)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s is after %s", entity.ErrInvalidDateRange,
			start.Format(entity.DateLayout), end.Format(entity.DateLayout))
	}

	series, err := s.provider.GetTimeSeries(ctx, currencyCode, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get time series: %w", err)
	}
	if series.Empty() {
		return nil, fmt.Errorf("%w for %s between %s and %s", entity.ErrNoTimeSeriesData, currencyCode,
			start.Format(entity.DateLayout), end.Format(entity.DateLayout))
	}

	days, err := sortedDays(series)
	if err != nil {
		return nil, err
	}

	totalPages := len(days) / pageSize
	if len(days)%pageSize != 0 {
		totalPages++
	}
	window := pageWindow(days, pageNumber, pageSize, totalPages)

	page := &entity.PagedHistoricalRates{
		CurrencyCode: currencyCode,
		StartDate:    start,
		EndDate:      end,
		PageNumber:   pageNumber,
		PageSize:     pageSize,
		TotalPages:   totalPages,
		Rates:        window,
	}
	if pageNumber < totalPages {
		page.NextCursor = NextPageCursor(currencyCode, start, end, pageNumber+1, pageSize)
	}

	s.logger.Debug("Historical page built", map[string]interface{}{
		"request_id":  requestID,
		"currency":    currencyCode,
		"dates":       len(days),
		"page_number": pageNumber,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})

	return page, nil
}

// NextPageCursor builds the relative query that fetches the given page
func NextPageCursor(currencyCode string, start, end time.Time, pageNumber, pageSize int) string {
	return fmt.Sprintf("%s?currencyCode=%s&startDate=%s&endDate=%s&pageNumber=%d&pageSize=%d",
		HistoricalRatesPath,
		currencyCode,
		start.Format(entity.DateLayout),
		end.Format(entity.DateLayout),
		pageNumber,
		pageSize)
}

// sortedDays parses every date key of the series and orders them ascending
func sortedDays(series *entity.TimeSeries) ([]entity.DailyRates, error) {
	days := make([]entity.DailyRates, 0, len(series.Rates))
	for key, rates := range series.Rates {
		date, err := time.Parse(entity.DateLayout, key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse series date %q: %w", key, err)
		}
		days = append(days, entity.DailyRates{Date: date, Rates: rates})
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days, nil
}

func pageWindow(days []entity.DailyRates, pageNumber, pageSize, totalPages int) []entity.DailyRates {
	if pageNumber > totalPages {
		return []entity.DailyRates{}
	}

	offset := (pageNumber - 1) * pageSize
	end := offset + pageSize
	if end > len(days) {
		end = len(days)
	}
	return days[offset:end]
}
