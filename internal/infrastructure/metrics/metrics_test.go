package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObservers(t *testing.T) {
	m := NewMetrics()

	m.ObserveCache("latest", true)
	m.ObserveCache("latest", false)
	m.ObserveCache("latest", false)
	m.ObserveUpstream("latest", OutcomeTransient)
	m.SetCircuitState(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("latest", CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("latest", CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("latest", OutcomeTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveCache("currencies", true)
		m.ObserveUpstream("currencies", OutcomeSuccess)
		m.SetCircuitState(0)
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ConversionRequestsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "conversion_requests_total 1")

	// separate instances do not collide on registration
	assert.NotPanics(t, func() { NewMetrics() })
}
