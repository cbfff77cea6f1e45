package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionResult is the outcome of converting an amount between two currencies
type ConversionResult struct {
	FromCurrencyCode string          `json:"from_currency_code"`
	ToCurrencyCode   string          `json:"to_currency_code"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount"`
	Rate             decimal.Decimal `json:"rate"`
	Timestamp        time.Time       `json:"timestamp"`
}

// DailyRates is the set of rates published for a single date
type DailyRates struct {
	Date  time.Time                  `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// PagedHistoricalRates is one page of a historical rate series.
// Rates is ordered by ascending date. NextCursor is empty on the last page.
type PagedHistoricalRates struct {
	CurrencyCode string       `json:"currency_code"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	PageNumber   int          `json:"page_number"`
	PageSize     int          `json:"page_size"`
	TotalPages   int          `json:"total_pages"`
	Rates        []DailyRates `json:"rates"`
	NextCursor   string       `json:"next_cursor,omitempty"`
}
