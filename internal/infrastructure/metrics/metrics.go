package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Upstream call outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeNoData      = "no_data"
	OutcomeInvalid     = "invalid_currency"
	OutcomeTransient   = "transient"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeError       = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ConversionRequestsTotal prometheus.Counter
	LatestRequestsTotal     prometheus.Counter
	HistoricalRequestsTotal prometheus.Counter

	CacheRequestsTotal    *prometheus.CounterVec
	UpstreamRequestsTotal *prometheus.CounterVec
	CircuitBreakerState   prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry so that tests can
// create as many instances as they need.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		ConversionRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "conversion_requests_total",
				Help: "Total number of currency conversion requests",
			},
		),

		LatestRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "latest_rate_requests_total",
				Help: "Total number of latest exchange rate requests",
			},
		),

		HistoricalRequestsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "historical_requests_total",
				Help: "Total number of historical exchange rate requests",
			},
		),

		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_cache_requests_total",
				Help: "Rate provider cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_upstream_requests_total",
				Help: "Logical calls to the remote rate source by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		CircuitBreakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rate_circuit_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCache counts a cache lookup. Safe on a nil receiver.
func (m *Metrics) ObserveCache(operation string, hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.CacheRequestsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveUpstream counts a logical upstream call. Safe on a nil receiver.
func (m *Metrics) ObserveUpstream(operation, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetCircuitState records the breaker state. Safe on a nil receiver.
func (m *Metrics) SetCircuitState(state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Set(float64(state))
}
