package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQuantificationMetrics() {
	r.QuantificationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgraph_quantifications_total",
			Help: "Number of probability quantifications by approximation",
		},
		[]string{"approximation"},
	)

	r.QuantificationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riskgraph_quantification_duration_seconds",
			Help:    "Probability quantification duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"approximation"},
	)

	r.TopEventProbability = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "riskgraph_top_event_probability",
			Help: "Most recent top event probability per analysis target",
		},
		[]string{"target"},
	)
}
