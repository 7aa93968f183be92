package metrics

import "github.com/prometheus/client_golang/prometheus"

type ReactionMetrics struct {
	Created prometheus.Counter
	Dropped prometheus.Counter
	Active  prometheus.Gauge
}

func NewReactionMetrics(reg prometheus.Registerer) *ReactionMetrics {
	m := &ReactionMetrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "created_total",
			Help:      "Reaction tokens created.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "dropped_total",
			Help:      "Reactions rejected because the active set was full.",
		}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reactions",
			Name:      "active",
			Help:      "Reaction tokens currently animating.",
		}),
	}

	reg.MustRegister(m.Created, m.Dropped, m.Active)
	return m
}
