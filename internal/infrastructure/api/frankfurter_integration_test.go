// internal/infrastructure/api/frankfurter_integration_test.go
package api

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrankfurterIntegration(t *testing.T) {
	// This test makes actual API calls
	if testing.Short() || os.Getenv("FRANKFURTER_LIVE") == "" {
		t.Skip("Skipping Frankfurter integration test; set FRANKFURTER_LIVE=1 to run")
	}

	client := NewFrankfurterClient("", nil, logger.NopLogger{})
	ctx := context.Background()

	currencies, err := client.GetSupportedCurrencies(ctx)
	require.NoError(t, err)
	assert.Contains(t, currencies, "EUR")

	for _, currency := range []string{"EUR", "GBP", "JPY"} {
		t.Run(currency, func(t *testing.T) {
			rates, err := client.GetLatestRates(ctx, "USD", []string{currency})
			require.NoError(t, err)
			require.NotNil(t, rates)

			rate, ok := rates.RateFor(currency)
			assert.True(t, ok)
			assert.True(t, rate.IsPositive())

			t.Logf("Got latest USD/%s rate %s on %s", currency, rate, rates.Date)
		})
	}

	end := time.Now().AddDate(0, 0, -1)
	series, err := client.GetTimeSeries(ctx, "USD", end.AddDate(0, 0, -14), end, []string{"EUR"})
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.NotEmpty(t, series.Rates)
}
