package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics covers the realtime fan-out to presentation clients.
type WebSocketMetrics struct {
	ActiveConnections  prometheus.Gauge
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of connected presentation clients.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "snapshots_published_total",
			Help:      "Show snapshots published to the realtime channel.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "publish_errors_total",
			Help:      "Show snapshots that failed to publish.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.SnapshotsPublished, m.PublishErrors)
	return m
}
