package handler

import (
	"encoding/json"

	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SupportedCurrencyResponse is one entry of the currencies endpoint
type SupportedCurrencyResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ConversionResponse represents the response for the conversion endpoint
type ConversionResponse struct {
	FromCurrencyCode string      `json:"fromCurrencyCode"`
	ToCurrencyCode   string      `json:"toCurrencyCode"`
	OriginalAmount   json.Number `json:"originalAmount"`
	ConvertedAmount  json.Number `json:"convertedAmount"`
	Rate             json.Number `json:"rate"`
	Timestamp        string      `json:"timestamp"`
}

// LatestRatesResponse represents the response for the latest rates endpoint
type LatestRatesResponse struct {
	CurrencyCode string                 `json:"currencyCode"`
	Date         string                 `json:"date"`
	Rates        map[string]json.Number `json:"rates"`
}

// HistoricalRatesResponse represents one page of historical rates.
// Rates is keyed by yyyy-MM-dd, which encoding/json writes in ascending order.
type HistoricalRatesResponse struct {
	CurrencyCode string                            `json:"currencyCode"`
	StartDate    string                            `json:"startDate"`
	EndDate      string                            `json:"endDate"`
	PageNumber   int                               `json:"pageNumber"`
	PageSize     int                               `json:"pageSize"`
	TotalPages   int                               `json:"totalPages"`
	Rates        map[string]map[string]json.Number `json:"rates"`
	NextCursor   string                            `json:"nextCursor,omitempty"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func numbers(rates map[string]decimal.Decimal) map[string]json.Number {
	out := make(map[string]json.Number, len(rates))
	for code, rate := range rates {
		out[code] = number(rate)
	}
	return out
}

func newConversionResponse(r *entity.ConversionResult) ConversionResponse {
	return ConversionResponse{
		FromCurrencyCode: r.FromCurrencyCode,
		ToCurrencyCode:   r.ToCurrencyCode,
		OriginalAmount:   number(r.OriginalAmount),
		ConvertedAmount:  number(r.ConvertedAmount),
		Rate:             number(r.Rate),
		Timestamp:        r.Timestamp.Format(entity.DateLayout),
	}
}

func newLatestRatesResponse(l *entity.LatestRates) LatestRatesResponse {
	return LatestRatesResponse{
		CurrencyCode: l.Base,
		Date:         l.Date,
		Rates:        numbers(l.Rates),
	}
}

func newHistoricalRatesResponse(p *entity.PagedHistoricalRates) HistoricalRatesResponse {
	rates := make(map[string]map[string]json.Number, len(p.Rates))
	for _, day := range p.Rates {
		rates[day.Date.Format(entity.DateLayout)] = numbers(day.Rates)
	}

	return HistoricalRatesResponse{
		CurrencyCode: p.CurrencyCode,
		StartDate:    p.StartDate.Format(entity.DateLayout),
		EndDate:      p.EndDate.Format(entity.DateLayout),
		PageNumber:   p.PageNumber,
		PageSize:     p.PageSize,
		TotalPages:   p.TotalPages,
		Rates:        rates,
		NextCursor:   p.NextCursor,
	}
}
