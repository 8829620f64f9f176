// Package montecarlo propagates basic-event uncertainty through a
// fixed minimal-cut-set listing by resampling every probability
// expression per trial and re-quantifying.
package montecarlo

import "math/rand/v2"

// trialMix decorrelates per-trial streams derived from one seed.
const trialMix = 0x9e3779b97f4a7c15

// Source is a seedable uniform source satisfying mef.UniformSource.
type Source struct {
	r *rand.Rand
}

// NewSource creates a PCG-backed source for one trial. The same
// (seed, trial) pair always yields the same stream, independent of
// how trials are scheduled across workers.
func NewSource(seed uint64, trial int) *Source {
	return &Source{r: rand.New(rand.NewPCG(seed, uint64(trial)*trialMix+uint64(trial)^seed))}
}

// Float64 returns a uniform draw in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }
