// Package quant computes top-event probability and basic-event
// importance measures over a fixed minimal-cut-set listing.
package quant

import (
	"math"
	"sort"
)

// Approximation selects the quantification method.
type Approximation int

const (
	// ApproxNone uses truncated inclusion-exclusion.
	ApproxNone Approximation = iota
	// ApproxRareEvent sums cut-set probabilities.
	ApproxRareEvent
	// ApproxMCUB uses the min-cut upper bound.
	ApproxMCUB
)

func (a Approximation) String() string {
	switch a {
	case ApproxNone:
		return "none"
	case ApproxRareEvent:
		return "rare-event"
	case ApproxMCUB:
		return "mcub"
	default:
		return "unknown"
	}
}

// Quantifier evaluates the probability of a disjunction of cut sets.
// Probabilities are addressed by variable index (1-based); a negative
// literal contributes 1-p.
type Quantifier struct {
	Approx  Approximation
	NumSums int // inclusion-exclusion truncation depth, default 7
}

// Evaluate returns the top-event probability clamped to [0, 1].
func (q Quantifier) Evaluate(sets [][]int32, probs []float64) float64 {
	if len(sets) == 0 {
		return 0
	}
	if len(sets) == 1 && len(sets[0]) == 0 {
		return 1 // tautology
	}
	var p float64
	switch q.Approx {
	case ApproxRareEvent:
		p = rareEvent(sets, probs)
	case ApproxMCUB:
		p = mcub(sets, probs)
	default:
		numSums := q.NumSums
		if numSums <= 0 {
			numSums = 7
		}
		p = inclusionExclusion(sets, probs, numSums)
	}
	return clamp01(p)
}

// CutSetProbability multiplies literal probabilities of one cut set.
func CutSetProbability(cs []int32, probs []float64) float64 {
	p := 1.0
	for _, lit := range cs {
		p *= literalProb(lit, probs)
	}
	return p
}

func literalProb(lit int32, probs []float64) float64 {
	if lit > 0 {
		return probs[lit]
	}
	return 1 - probs[-lit]
}

// rareEvent sums cut-set probabilities from the smallest term up to
// limit floating-point cancellation.
func rareEvent(sets [][]int32, probs []float64) float64 {
	terms := make([]float64, 0, len(sets))
	for _, cs := range sets {
		terms = append(terms, CutSetProbability(cs, probs))
	}
	sort.Float64s(terms)
	sum := 0.0
	for _, t := range terms {
		sum += t
	}
	return sum
}

// mcub computes 1 - prod(1 - P(cs)).
func mcub(sets [][]int32, probs []float64) float64 {
	prod := 1.0
	for _, cs := range sets {
		prod *= 1 - CutSetProbability(cs, probs)
	}
	return 1 - prod
}

// inclusionExclusion expands the union probability up to numSums
// intersection terms. Joint probabilities deduplicate shared literals;
// a subset containing complementary literals contributes nothing, and
// its supersets are pruned with it.
func inclusionExclusion(sets [][]int32, probs []float64, numSums int) float64 {
	if numSums > len(sets) {
		numSums = len(sets)
	}
	levels := make([]kahan, numSums+1)

	present := make(map[int32]bool)
	var rec func(start, depth int, prob float64)
	rec = func(start, depth int, prob float64) {
		for i := start; i < len(sets); i++ {
			joint := prob
			var added []int32
			dead := false
			for _, lit := range sets[i] {
				if present[lit] {
					continue
				}
				if present[-lit] {
					dead = true
					break
				}
				present[lit] = true
				added = append(added, lit)
				joint *= literalProb(lit, probs)
			}
			if !dead {
				levels[depth+1].add(joint)
				if depth+1 < numSums {
					rec(i+1, depth+1, joint)
				}
			}
			for _, lit := range added {
				delete(present, lit)
			}
		}
	}
	rec(0, 0, 1)

	// Combine levels deepest (smallest terms) first.
	total := 0.0
	for k := numSums; k >= 1; k-- {
		term := levels[k].sum()
		if k%2 == 0 {
			total -= term
		} else {
			total += term
		}
	}
	return total
}

// kahan is a compensated accumulator.
type kahan struct {
	s, c float64
}

func (k *kahan) add(v float64) {
	y := v - k.c
	t := k.s + y
	k.c = (t - k.s) - y
	k.s = t
}

func (k *kahan) sum() float64 { return k.s }

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
