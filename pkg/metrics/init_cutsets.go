package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCutSetMetrics() {
	r.CutSetRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_cutset_runs_total",
			Help: "Number of minimal cut set generations by outcome",
		},
		[]string{"status"},
	)

	r.CutSetDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_cutset_duration_seconds",
			Help:    "Minimal cut set generation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
	)

	r.CutSetsFound = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_cutsets_found",
			Help:    "Minimal cut sets produced per generation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	r.CutSetLargestOrder = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskgraph_cutset_largest_order",
			Help:    "Largest cut set order per generation",
			Buckets: prometheus.LinearBuckets(1, 2, 15),
		},
	)

	r.CutSetTruncationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "riskgraph_cutset_truncations_total",
			Help: "Candidates dropped by order or probability cut-off",
		},
	)
}
