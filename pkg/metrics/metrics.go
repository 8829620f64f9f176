package metrics

import (
	"time"
)

// RecordPreprocessing records one preprocessing run
func (r *Registry) RecordPreprocessing(status string, duration time.Duration, gatesBefore, gatesAfter, modules int) {
	r.PreprocessingRunsTotal.WithLabelValues(status).Inc()
	r.PreprocessingDuration.Observe(duration.Seconds())
	r.PreprocessingGatesBefore.Observe(float64(gatesBefore))
	r.PreprocessingGatesAfter.Observe(float64(gatesAfter))
	r.PreprocessingModules.Observe(float64(modules))
}

// RecordCutSetRun records one minimal cut set generation
func (r *Registry) RecordCutSetRun(status string, duration time.Duration, cutSets, largestOrder, truncated int) {
	r.CutSetRunsTotal.WithLabelValues(status).Inc()
	r.CutSetDuration.Observe(duration.Seconds())
	r.CutSetsFound.Observe(float64(cutSets))
	r.CutSetLargestOrder.Observe(float64(largestOrder))
	if truncated > 0 {
		r.CutSetTruncationsTotal.Add(float64(truncated))
	}
}

// RecordQuantification records one probability quantification
func (r *Registry) RecordQuantification(approximation, target string, duration time.Duration, probability float64) {
	r.QuantificationsTotal.WithLabelValues(approximation).Inc()
	r.QuantificationDuration.WithLabelValues(approximation).Observe(duration.Seconds())
	r.TopEventProbability.WithLabelValues(target).Set(probability)
}

// RecordUncertainty records one Monte Carlo uncertainty analysis
func (r *Registry) RecordUncertainty(duration time.Duration, trials int) {
	r.UncertaintyRunsTotal.Inc()
	r.UncertaintyDuration.Observe(duration.Seconds())
	r.UncertaintyTrials.Observe(float64(trials))
}
