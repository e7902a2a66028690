package server

import (
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors of the service. It implements
// pipeline.Observer.
type Metrics struct {
	fragments     *prometheus.CounterVec   // by kind (ontology, graph) and status (accepted, rejected)
	diagnostics   *prometheus.CounterVec   // by stage and kind
	stageDuration *prometheus.HistogramVec // by stage
}

// NewMetrics creates the collectors and registers them, with the Go runtime
// and process collectors, on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontograph",
			Name:      "fragments_total",
			Help:      "Fragments received, by kind and status",
		}, []string{"kind", "status"}),

		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontograph",
			Name:      "diagnostics_total",
			Help:      "Diagnostics recorded, by stage and kind",
		}, []string{"stage", "kind"}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontograph",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{
		m.fragments,
		m.diagnostics,
		m.stageDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, diags model.Diagnostics) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	for _, d := range diags {
		m.diagnostics.WithLabelValues(d.Stage, string(d.Kind)).Inc()
	}
}

// RecordFragments counts the fragments of one request.
func (m *Metrics) RecordFragments(kind string, accepted, rejected int) {
	if m == nil {
		return
	}
	m.fragments.WithLabelValues(kind, "accepted").Add(float64(accepted))
	m.fragments.WithLabelValues(kind, "rejected").Add(float64(rejected))
}
