package entity

import (
	"github.com/shopspring/decimal"
)

// Date layouts used by the upstream payloads and by cache keys
const (
	DateLayout    = "2006-01-02"
	KeyDateLayout = "20060102"
)

// LatestRates holds the most recent rates published for a base currency.
// Each rate expresses one unit of Base in the target currency.
type LatestRates struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RateFor returns the rate for the given target currency
func (l *LatestRates) RateFor(code string) (decimal.Decimal, bool) {
	if l == nil || l.Rates == nil {
		return decimal.Zero, false
	}
	rate, ok := l.Rates[code]
	return rate, ok
}

// TimeSeries holds daily rates for a base currency between two dates, both inclusive.
// Days without a published rate are simply absent from Rates.
type TimeSeries struct {
	Base      string                                `json:"base"`
	StartDate string                                `json:"start_date"`
	EndDate   string                                `json:"end_date"`
	Rates     map[string]map[string]decimal.Decimal `json:"rates"`
}

// Empty reports whether the series carries no dated rates
func (t *TimeSeries) Empty() bool {
	return t == nil || len(t.Rates) == 0
}
