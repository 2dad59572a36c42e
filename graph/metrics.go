package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records engine activity in Prometheus. A nil *Metrics records nothing.
//
// Exposed series:
//
//	travelplanner_graph_runs_total{graph,outcome}
//	travelplanner_graph_run_duration_seconds{graph,outcome}
//	travelplanner_graph_steps_total{graph,node,status}
//	travelplanner_graph_step_duration_seconds{graph,node}
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics with reg, the default registerer when nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelplanner",
			Subsystem: "graph",
			Name:      "runs_total",
			Help:      "Execute and Resume calls by outcome.",
		}, []string{"graph", "outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travelplanner",
			Subsystem: "graph",
			Name:      "run_duration_seconds",
			Help:      "Wall time of Execute and Resume calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"graph", "outcome"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelplanner",
			Subsystem: "graph",
			Name:      "steps_total",
			Help:      "Node invocations by status.",
		}, []string{"graph", "node", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travelplanner",
			Subsystem: "graph",
			Name:      "step_duration_seconds",
			Help:      "Node invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"graph", "node"}),
	}
}

func (m *Metrics) observeRun(graph, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(graph, outcome).Inc()
	m.runDuration.WithLabelValues(graph, outcome).Observe(d.Seconds())
}

func (m *Metrics) observeStep(graph, node, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(graph, node, status).Inc()
	m.stepDuration.WithLabelValues(graph, node).Observe(d.Seconds())
}
