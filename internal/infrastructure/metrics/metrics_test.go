package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLookup("current", "live")
	m.ObserveLookup("current", "live")
	m.ObserveLookup("historical", "sample")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLookupsTotal.WithLabelValues("current", "live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLookupsTotal.WithLabelValues("historical", "sample")))

	m.ObserveFetch("current", time.Now(), nil)
	m.ObserveFetch("current", time.Now(), errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("current", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("current", "error")))

	m.ObserveCache("memory", "hit")
	m.ObservePersistFailure()
	m.ObserveSampleDay()
	m.ObserveConversion("ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheResultsTotal.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CachePersistFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SampleDaysTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("ok")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveLookup("current", "sample")
		m.ObserveFetch("probe", time.Now(), nil)
		m.ObserveCache("disk", "miss")
		m.ObservePersistFailure()
		m.ObserveSampleDay()
		m.ObserveConversion("failed")
	})
}

func TestIndependentInstances(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}
