package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initUncertaintyMetrics() {
	r.UncertaintyRunsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "riskgraph_uncertainty_runs_total",
			Help: "Number of Monte Carlo uncertainty analyses",
		},
	)

	r.UncertaintyDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_uncertainty_duration_seconds",
			Help:    "Monte Carlo uncertainty analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	r.UncertaintyTrials = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_uncertainty_trials",
			Help:    "Trials per Monte Carlo uncertainty analysis",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
	)
}
