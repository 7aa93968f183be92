package metrics

import "github.com/prometheus/client_golang/prometheus"

// OverlayMetrics covers overlay lifecycle transitions and contest draws.
type OverlayMetrics struct {
	Transitions  *prometheus.CounterVec
	ContestDraws *prometheus.CounterVec
}

func NewOverlayMetrics(reg prometheus.Registerer) *OverlayMetrics {
	m := &OverlayMetrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "overlay",
			Name:      "transitions_total",
			Help:      "Overlay lifecycle outcomes (shown, replaced, ignored, expired, dismissed), by event kind.",
		}, []string{"kind", "outcome"}),
		ContestDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "overlay",
			Name:      "contest_draws_total",
			Help:      "Simulated contest prize draws, by prize.",
		}, []string{"prize"}),
	}

	reg.MustRegister(m.Transitions, m.ContestDraws)
	return m
}
