package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records transport activity. A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	activeStreams prometheus.Gauge
}

// NewMetrics registers the server metrics with reg, the default registerer when nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelplanner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Chat requests by route and status code.",
		}, []string{"route", "code"}),
		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "travelplanner",
			Subsystem: "http",
			Name:      "active_streams",
			Help:      "Event streams currently open.",
		}),
	}
}

func (m *Metrics) request(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, statusLabel(code)).Inc()
}

func (m *Metrics) streamOpened() {
	if m != nil {
		m.activeStreams.Inc()
	}
}

func (m *Metrics) streamClosed() {
	if m != nil {
		m.activeStreams.Dec()
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
