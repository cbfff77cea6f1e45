package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damon-houk/currency-converter/internal/application/service"
	"github.com/damon-houk/currency-converter/internal/domain/entity"
	"github.com/damon-houk/currency-converter/internal/infrastructure/logger"
	"github.com/damon-houk/currency-converter/internal/infrastructure/metrics"
	"github.com/damon-houk/currency-converter/internal/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHistoricalRatesDefaults(t *testing.T) {
	// Setup
	provider := new(mocks.MockExchangeRateProvider)
	m := metrics.NewMetrics()
	h := NewCurrencyHandler(service.NewConversionService(provider, logger.NopLogger{}), nil, m, logger.NopLogger{})
	h.now = func() time.Time { return time.Date(2025, 5, 13, 18, 30, 0, 0, time.UTC) }

	start := time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC)
	provider.On("GetTimeSeries", mock.Anything, DefaultCurrencyCode, start, end, []string(nil)).
		Return(&entity.TimeSeries{
			Base: DefaultCurrencyCode,
			Rates: map[string]map[string]decimal.Decimal{
				"2025-05-12": {"USD": decimal.RequireFromString("1.12")},
			},
		}, nil).Once()

	// Execute
	rec := httptest.NewRecorder()
	h.HistoricalRates(rec, httptest.NewRequest(http.MethodGet, "/exchange-rates/historical", nil))

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pageNumber":1`)
	assert.Contains(t, rec.Body.String(), `"pageSize":10`)
	assert.Contains(t, rec.Body.String(), `"startDate":"2025-04-13"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HistoricalRequestsTotal))
	provider.AssertExpectations(t)
}

func TestBlockedCurrencyMessageKeepsConfiguredOrder(t *testing.T) {
	h := NewCurrencyHandler(nil, []string{"THB", "TRY"}, nil, logger.NopLogger{})

	assert.True(t, h.isBlocked("TRY"))
	assert.False(t, h.isBlocked("USD"))
	assert.Equal(t, "Conversion involving THB, TRY is not supported.", h.blockedMessage)
}
