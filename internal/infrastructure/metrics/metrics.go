package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for rate lookups, cache tiers and the remote API
type Metrics struct {
	// Lookups by kind (current, historical) and provenance of the answer
	RateLookupsTotal *prometheus.CounterVec

	// Cache tier results: tier (memory, disk), result (hit, stale, miss)
	CacheResultsTotal         *prometheus.CounterVec
	CachePersistFailuresTotal prometheus.Counter

	// Remote API calls by endpoint (probe, current, historical) and outcome (ok, error)
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Historical days substituted with sample data
	SampleDaysTotal prometheus.Counter

	ConversionsTotal *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses a private registry, which keeps
// independent instances (tests, several services in one process) from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RateLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_rate_lookups_total",
				Help: "Rate lookups by kind and provenance of the result",
			},
			[]string{"kind", "provenance"},
		),
		CacheResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_cache_results_total",
				Help: "Cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		CachePersistFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fx_cache_persist_failures_total",
				Help: "Failed writes of the durable cache file",
			},
		),
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_fetch_total",
				Help: "Remote API calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fx_fetch_duration_seconds",
				Help:    "Latency of remote API calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		SampleDaysTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fx_sample_days_total",
				Help: "Historical days synthesized from sample data",
			},
		),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_conversions_total",
				Help: "Conversions by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveFetch records one remote API call. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(endpoint string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchTotal.WithLabelValues(endpoint, outcome).Inc()
	m.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

// ObserveLookup records the provenance of a rate lookup. Safe on a nil receiver.
func (m *Metrics) ObserveLookup(kind, provenance string) {
	if m == nil {
		return
	}
	m.RateLookupsTotal.WithLabelValues(kind, provenance).Inc()
}

// ObserveCache records a cache tier result. Safe on a nil receiver.
func (m *Metrics) ObserveCache(tier, result string) {
	if m == nil {
		return
	}
	m.CacheResultsTotal.WithLabelValues(tier, result).Inc()
}

// ObservePersistFailure records a failed durable write. Safe on a nil receiver.
func (m *Metrics) ObservePersistFailure() {
	if m == nil {
		return
	}
	m.CachePersistFailuresTotal.Inc()
}

// ObserveSampleDay records a historical day filled with sample data. Safe on a nil receiver.
func (m *Metrics) ObserveSampleDay() {
	if m == nil {
		return
	}
	m.SampleDaysTotal.Inc()
}

// ObserveConversion records a conversion outcome. Safe on a nil receiver.
func (m *Metrics) ObserveConversion(outcome string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
}
