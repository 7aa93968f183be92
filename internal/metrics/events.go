package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventMetrics covers the inbound event channel.
type EventMetrics struct {
	Received   *prometheus.CounterVec
	Dropped    *prometheus.CounterVec
	Reconnects prometheus.Counter
	Connected  prometheus.Gauge
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "received_total",
			Help:      "Total number of decoded live events, by kind.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total number of inbound payloads dropped, by reason.",
		}, []string{"reason"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "reconnects_total",
			Help:      "Total number of event channel reconnect attempts.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "connected",
			Help:      "1 while the event channel stream is open.",
		}),
	}

	reg.MustRegister(m.Received, m.Dropped, m.Reconnects, m.Connected)
	return m
}
