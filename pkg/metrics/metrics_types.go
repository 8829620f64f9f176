package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Preprocessing Metrics
	PreprocessingRunsTotal   *prometheus.CounterVec
	PreprocessingDuration    prometheus.Histogram
	PreprocessingGatesBefore prometheus.Histogram
	PreprocessingGatesAfter  prometheus.Histogram
	PreprocessingModules     prometheus.Histogram

	// Cut-Set Metrics
	CutSetRunsTotal        *prometheus.CounterVec
	CutSetDuration         prometheus.Histogram
	CutSetsFound           prometheus.Histogram
	CutSetLargestOrder     prometheus.Histogram
	CutSetTruncationsTotal prometheus.Counter

	// Quantification Metrics
	QuantificationsTotal   *prometheus.CounterVec
	QuantificationDuration *prometheus.HistogramVec
	TopEventProbability    *prometheus.GaugeVec

	// Uncertainty Metrics
	UncertaintyRunsTotal prometheus.Counter
	UncertaintyDuration  prometheus.Histogram
	UncertaintyTrials    prometheus.Histogram

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initPreprocessingMetrics()
	r.initCutSetMetrics()
	r.initQuantificationMetrics()
	r.initUncertaintyMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
