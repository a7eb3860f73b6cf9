package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shortener"

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

// Resolution outcomes
const (
	Resolved       = "resolved"
	NotFound       = "not_found"
	ResolveFailed  = "error"
	CounterApplied = "applied"
	CounterFailed  = "failed"
	CounterDropped = "dropped"
)

// Metrics holds the collectors for the redirect path. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	linksCreated prometheus.Counter
	counterOps   *prometheus.CounterVec
	queueDepth   prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Redirect cache lookups by result.",
		}, []string{"result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "resolutions_total",
			Help:      "Slug resolutions by outcome.",
		}, []string{"outcome"}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "links_created_total",
			Help:      "Links created.",
		}),
		counterOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counter",
			Name:      "increments_total",
			Help:      "Redirect counter increments by result.",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "counter",
			Name:      "queue_depth",
			Help:      "Increments waiting to be written.",
		}),
	}
	reg.MustRegister(m.cacheLookups, m.resolutions, m.linksCreated, m.counterOps, m.queueDepth)
	return m
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LinkCreated() {
	if m == nil {
		return
	}
	m.linksCreated.Inc()
}

func (m *Metrics) CounterIncrement(result string) {
	if m == nil {
		return
	}
	m.counterOps.WithLabelValues(result).Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
