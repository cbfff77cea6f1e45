package entity

import (
	"regexp"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// SupportedCurrency is a currency code paired with its display name
type SupportedCurrency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// IsValidCurrencyCode reports whether code is a three-letter uppercase ISO-style code.
// It only checks the shape; whether the upstream supports the code is decided elsewhere.
func IsValidCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code)
}
