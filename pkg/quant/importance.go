package quant

import (
	"math"
	"sort"
)

// Importance holds the standard importance measures for one basic
// event, computed from conditional re-evaluations of the cut-set
// probability with the event pinned to certain failure and certain
// success.
type Importance struct {
	Variable    int32
	Occurrences int // number of cut sets containing the event

	MIF float64 // Birnbaum, P(top|q=1) - P(top|q=0)
	CIF float64 // criticality, MIF * q / P(top)
	DIF float64 // diagnosis, q * P(top|q=1) / P(top)
	RAW float64 // risk achievement worth, P(top|q=1) / P(top)
	RRW float64 // risk reduction worth, P(top) / P(top|q=0)
	FV  float64 // Fussell-Vesely, 1 - P(top|q=0) / P(top)

	// Undefined is set when P(top) is zero and the ratio measures have
	// no value.
	Undefined bool
}

// Measures computes importance for every variable occurring in the cut
// sets, ordered by variable index.
func (q Quantifier) Measures(sets [][]int32, probs []float64) []Importance {
	occurrences := make(map[int32]int)
	for _, cs := range sets {
		for _, lit := range cs {
			v := lit
			if v < 0 {
				v = -v
			}
			occurrences[v]++
		}
	}
	vars := make([]int32, 0, len(occurrences))
	for v := range occurrences {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	pTotal := q.Evaluate(sets, probs)
	pinned := append([]float64(nil), probs...)

	out := make([]Importance, 0, len(vars))
	for _, v := range vars {
		saved := pinned[v]
		pinned[v] = 0
		p0 := q.Evaluate(sets, pinned)
		pinned[v] = 1
		p1 := q.Evaluate(sets, pinned)
		pinned[v] = saved

		rec := Importance{
			Variable:    v,
			Occurrences: occurrences[v],
			MIF:         p1 - p0,
		}
		if pTotal == 0 {
			rec.Undefined = true
			rec.CIF, rec.DIF, rec.RAW, rec.RRW, rec.FV =
				math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		} else {
			rec.CIF = rec.MIF * saved / pTotal
			rec.DIF = saved * p1 / pTotal
			rec.RAW = p1 / pTotal
			rec.RRW = pTotal / p0 // +Inf when the event alone sustains the risk
			rec.FV = 1 - p0/pTotal
		}
		out = append(out, rec)
	}
	return out
}
