package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPreprocessingMetrics() {
	r.PreprocessingRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_preprocessing_runs_total",
			Help: "Number of graph preprocessing runs by outcome",
		},
		[]string{"status"},
	)

	r.PreprocessingDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_preprocessing_duration_seconds",
			Help:    "Graph preprocessing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	r.PreprocessingGatesBefore = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_preprocessing_gates_before",
			Help:    "Gate count before preprocessing",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	r.PreprocessingGatesAfter = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_preprocessing_gates_after",
			Help:    "Gate count after preprocessing",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	r.PreprocessingModules = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_preprocessing_modules",
			Help:    "Independent modules detected per run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
}
