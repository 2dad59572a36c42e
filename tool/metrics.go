package tool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts capability invocations. A nil *Metrics records nothing.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the tool metrics with reg, the default registerer when nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelplanner",
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Capability invocations by status.",
		}, []string{"tool", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travelplanner",
			Subsystem: "tool",
			Name:      "invocation_duration_seconds",
			Help:      "Capability invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
}

func (m *Metrics) observe(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tool, status).Inc()
	m.duration.WithLabelValues(tool).Observe(d.Seconds())
}
