package montecarlo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
	"github.com/dd0wney/cluso-riskgraph/pkg/parallel"
	"github.com/dd0wney/cluso-riskgraph/pkg/quant"
)

// Config controls the uncertainty analysis.
type Config struct {
	// NumTrials is the sample count. Non-positive means 1000.
	NumTrials int

	// Seed makes the whole analysis reproducible bit for bit.
	Seed uint64

	// Workers bounds the trial parallelism. Non-positive means
	// runtime.NumCPU().
	Workers int

	// Quantifier evaluates each trial's probability.
	Quantifier quant.Quantifier

	// HistogramBins sets the number of density bins. Non-positive
	// means 20.
	HistogramBins int
}

// Bin is one histogram bucket of the sampled distribution.
type Bin struct {
	Lower, Upper float64
	Count        int
}

// Result summarizes the sampled top-event probability distribution.
type Result struct {
	Mean   float64
	StdDev float64

	// ErrorFactor is sqrt(p95/p05), the conventional lognormal-style
	// spread indicator.
	ErrorFactor float64

	P05, P50, P95 float64

	Histogram []Bin

	NumTrials int
	Seed      uint64
}

// Analyze resamples every event's probability expression NumTrials
// times and re-quantifies the cut sets per trial. events is addressed
// by variable index minus one, matching the literals in sets.
func (cfg Config) Analyze(ctx context.Context, sets [][]int32, events []*mef.BasicEvent) (*Result, error) {
	trials := cfg.NumTrials
	if trials <= 0 {
		trials = 1000
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > trials {
		workers = trials
	}

	pool, err := parallel.NewWorkerPool(workers)
	if err != nil {
		return nil, err
	}

	// Each trial writes its own slot, so the samples slice needs no lock.
	samples := make([]float64, trials)
	errs := make([]error, trials)
	for t := 0; t < trials; t++ {
		t := t
		pool.Submit(func() {
			if ctx.Err() != nil {
				errs[t] = ctx.Err()
				return
			}
			sctx := mef.NewSampleContext(NewSource(cfg.Seed, t))
			probs := make([]float64, len(events)+1)
			for i, e := range events {
				p := e.Probability().Sample(sctx)
				if p < 0 {
					p = 0
				} else if p > 1 {
					p = 1
				}
				probs[i+1] = p
			}
			samples[t] = cfg.Quantifier.Evaluate(sets, probs)
		})
	}
	pool.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	res := summarize(samples, cfg.HistogramBins)
	res.NumTrials = trials
	res.Seed = cfg.Seed
	return res, nil
}

func summarize(samples []float64, bins int) *Result {
	if bins <= 0 {
		bins = 20
	}
	n := float64(len(samples))

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= n

	variance := 0.0
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	if len(samples) > 1 {
		variance /= n - 1
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	res := &Result{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		P05:    quantile(sorted, 0.05),
		P50:    quantile(sorted, 0.50),
		P95:    quantile(sorted, 0.95),
	}
	if res.P05 > 0 {
		res.ErrorFactor = math.Sqrt(res.P95 / res.P05)
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		res.Histogram = []Bin{{Lower: lo, Upper: hi, Count: len(sorted)}}
		return res
	}
	width := (hi - lo) / float64(bins)
	res.Histogram = make([]Bin, bins)
	for i := range res.Histogram {
		res.Histogram[i] = Bin{Lower: lo + float64(i)*width, Upper: lo + float64(i+1)*width}
	}
	for _, s := range sorted {
		i := int((s - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		res.Histogram[i].Count++
	}
	return res
}

// quantile interpolates linearly between order statistics.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// String renders the headline numbers for logs.
func (r *Result) String() string {
	return fmt.Sprintf("mean=%.6g stddev=%.6g p05=%.6g p50=%.6g p95=%.6g trials=%d",
		r.Mean, r.StdDev, r.P05, r.P50, r.P95, r.NumTrials)
}
