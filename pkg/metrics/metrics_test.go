package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup(CacheHit)
	m.CacheLookup(CacheHit)
	m.CacheLookup(CacheMiss)
	m.Resolution(NotFound)
	m.LinkCreated()
	m.CounterIncrement(CounterDropped)
	m.QueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(NotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.counterOps.WithLabelValues(CounterDropped)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup(CacheHit)
		m.Resolution(Resolved)
		m.LinkCreated()
		m.CounterIncrement(CounterApplied)
		m.QueueDepth(1)
	})
}
