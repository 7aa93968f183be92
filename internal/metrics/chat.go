package metrics

import "github.com/prometheus/client_golang/prometheus"

type ChatMetrics struct {
	Messages *prometheus.CounterVec
	Evicted  prometheus.Counter
	Viewers  prometheus.Gauge
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages appended to the feed, by source (simulated, viewer).",
		}, []string{"source"}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "evicted_total",
			Help:      "Chat messages evicted from the head of the capped feed.",
		}),
		Viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "viewers",
			Help:      "Current simulated viewer count.",
		}),
	}

	reg.MustRegister(m.Messages, m.Evicted, m.Viewers)
	return m
}
