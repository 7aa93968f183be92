package metrics

import "github.com/prometheus/client_golang/prometheus"

// LookupMetrics covers product reference resolution and its caches.
type LookupMetrics struct {
	Lookups      *prometheus.CounterVec
	Duration     prometheus.Histogram
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

func NewLookupMetrics(reg prometheus.Registerer) *LookupMetrics {
	m := &LookupMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Product lookups, by result (ok, not_found, error, breaker_open).",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Duration of product lookups that reached the backing store.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup_cache",
			Name:      "hits_total",
			Help:      "Product cache hits, by layer.",
		}, []string{"layer"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup_cache",
			Name:      "misses_total",
			Help:      "Product cache misses, by layer.",
		}, []string{"layer"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open), by component.",
		}, []string{"component"}),
	}

	reg.MustRegister(m.Lookups, m.Duration, m.CacheHits, m.CacheMisses, m.BreakerState)
	return m
}
