// Package mocus enumerates minimal cut sets of a preprocessed indexed
// graph by top-down gate substitution: OR gates fan a candidate out,
// AND gates grow it in place, and every insertion is checked against
// the order and probability cut-offs so the working set stays bounded.
package mocus

import (
	"context"
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// DefaultMaxCandidates bounds the working set before the generator
// gives up with a resource error.
const DefaultMaxCandidates = 10_000_000

// Config carries the generation limits.
type Config struct {
	// LimitOrder is the maximum cut-set size. Non-positive means 20.
	LimitOrder int

	// CutOff drops any candidate whose probability upper bound falls
	// below it. Zero disables probability pruning.
	CutOff float64

	// MaxCandidates bounds the working set size. Non-positive means
	// DefaultMaxCandidates.
	MaxCandidates int

	// Probability returns the point probability of a variable. It may
	// be nil for purely qualitative analysis; CutOff then has no
	// effect.
	Probability func(variable int32) float64
}

// ErrWorkingSetExhausted is returned when the candidate set exceeds the
// configured bound.
var ErrWorkingSetExhausted = fmt.Errorf("cut-set working set exceeds the configured bound")

// Result is the canonical minimal-cut-set listing.
// Each cut set is a slice of signed variable indices sorted by
// magnitude; a negative index is a negated literal.
type Result struct {
	CutSets [][]int32

	// Truncated counts candidates dropped by the order limit or the
	// probability cut-off. Zero means the listing is exact.
	Truncated int
}

// IsTautology reports the single-empty-set result (top is always true).
func (r *Result) IsTautology() bool {
	return len(r.CutSets) == 1 && len(r.CutSets[0]) == 0
}

// IsContradiction reports the empty result (top is never true).
func (r *Result) IsContradiction() bool { return len(r.CutSets) == 0 }

// Distribution returns cut-set counts indexed by order.
func (r *Result) Distribution() []int {
	maxLen := 0
	for _, cs := range r.CutSets {
		if len(cs) > maxLen {
			maxLen = len(cs)
		}
	}
	distr := make([]int, maxLen+1)
	for _, cs := range r.CutSets {
		distr[len(cs)]++
	}
	return distr
}

// Generate runs the expansion from the graph root.
func Generate(ctx context.Context, g *graph.Graph, cfg Config) (*Result, error) {
	if cfg.LimitOrder <= 0 {
		cfg.LimitOrder = 20
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	gen := &generator{ctx: ctx, g: g, cfg: cfg}

	root := g.Root()
	switch {
	case g.IsConstant(root):
		if root > 0 {
			return &Result{CutSets: [][]int32{{}}}, nil // tautology
		}
		return &Result{CutSets: nil}, nil // contradiction
	case g.IsVariable(root):
		return &Result{CutSets: [][]int32{{root}}}, nil
	}

	sets, err := gen.run(root, cfg.LimitOrder, cfg.CutOff)
	if err != nil {
		return nil, err
	}
	return &Result{CutSets: sets, Truncated: gen.truncated}, nil
}

type candidate struct {
	lits  []int32 // sorted by magnitude
	gates []int32 // positive gate indices, unordered
	prob  float64 // product of literal probabilities (1 without data)
}

func (c *candidate) clone() *candidate {
	dup := &candidate{
		lits:  append([]int32(nil), c.lits...),
		gates: append([]int32(nil), c.gates...),
		prob:  c.prob,
	}
	return dup
}

type generator struct {
	ctx       context.Context
	g         *graph.Graph
	cfg       Config
	steps     int
	truncated int
}

// run expands the sub-formula rooted at the given gate. Modules below
// it recurse with the remaining order and a proportionally tightened
// cut-off.
func (gen *generator) run(rootRef int32, limitOrder int, cutOff float64) ([][]int32, error) {
	rootIdx := rootRef
	if rootIdx < 0 {
		rootIdx = -rootIdx
	}
	work := []*candidate{{gates: []int32{rootIdx}, prob: 1}}
	var done [][]int32

	for len(work) > 0 {
		gen.steps++
		if gen.steps%1024 == 0 {
			if err := gen.ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(work) > gen.cfg.MaxCandidates {
			return nil, ErrWorkingSetExhausted
		}

		c := work[len(work)-1]
		work = work[:len(work)-1]
		if len(c.gates) == 0 {
			done = append(done, c.lits)
			continue
		}

		// Expand the smallest gate first to keep the fan-out low.
		pick := 0
		for i, idx := range c.gates {
			if len(gen.g.Gate(idx).Args) < len(gen.g.Gate(c.gates[pick]).Args) {
				pick = i
			}
		}
		idx := c.gates[pick]
		c.gates = append(c.gates[:pick], c.gates[pick+1:]...)
		node := gen.g.Gate(idx)

		if node.Module && idx != rootIdx {
			expanded, err := gen.expandModule(c, node, limitOrder, cutOff)
			if err != nil {
				return nil, err
			}
			work = append(work, expanded...)
			continue
		}

		switch node.Op {
		case graph.OpAnd:
			if next, ok := gen.addArgs(c, node.Args, limitOrder, cutOff); ok {
				work = append(work, next)
			}
		case graph.OpOr:
			for _, arg := range node.Args {
				if next, ok := gen.addArgs(c.clone(), []int32{arg}, limitOrder, cutOff); ok {
					work = append(work, next)
				}
			}
		case graph.OpAtLeast:
			n, k := len(node.Args), node.K
			forEachCombination(n, k, func(picked []int) {
				refs := make([]int32, 0, k)
				for _, i := range picked {
					refs = append(refs, node.Args[i])
				}
				if next, ok := gen.addArgs(c.clone(), refs, limitOrder, cutOff); ok {
					work = append(work, next)
				}
			})
		default:
			return nil, fmt.Errorf("unexpected %s gate %d after preprocessing", node.Op, node.Index)
		}
	}

	done = minimize(done)
	sortCanonical(done)
	return done, nil
}

// expandModule analyses the module independently and folds its minimal
// cut sets back as a disjunction over the current candidate. The
// module receives the order budget left in the candidate and the
// parent cut-off divided by the candidate's current probability.
func (gen *generator) expandModule(c *candidate, node *graph.Gate,
	limitOrder int, cutOff float64) ([]*candidate, error) {
	subOrder := limitOrder - len(c.lits)
	subCutOff := cutOff
	if c.prob > 0 && cutOff > 0 {
		subCutOff = cutOff / c.prob
	}
	sub, err := gen.run(node.Index, subOrder, subCutOff)
	if err != nil {
		return nil, err
	}
	var out []*candidate
	for _, mcs := range sub {
		if next, ok := gen.addArgs(c.clone(), mcs, limitOrder, cutOff); ok {
			out = append(out, next)
		}
	}
	return out, nil
}

// addArgs merges references into a candidate, distributing gates and
// literals. It returns false when the candidate must be dropped:
// complementary literals, order overflow, or cut-off underflow.
func (gen *generator) addArgs(c *candidate, refs []int32, limitOrder int, cutOff float64) (*candidate, bool) {
	for _, ref := range refs {
		if !gen.g.IsVariable(ref) {
			idx := ref
			if idx < 0 {
				idx = -idx
			}
			c.gates = append(c.gates, idx)
			continue
		}
		pos := sort.Search(len(c.lits), func(i int) bool {
			return magLess(ref, c.lits[i]) || c.lits[i] == ref || c.lits[i] == -ref
		})
		if pos < len(c.lits) {
			if c.lits[pos] == ref {
				continue // idempotent
			}
			if c.lits[pos] == -ref {
				return nil, false // annihilated
			}
		}
		c.lits = append(c.lits, 0)
		copy(c.lits[pos+1:], c.lits[pos:])
		c.lits[pos] = ref
		if len(c.lits) > limitOrder {
			gen.truncated++
			return nil, false
		}
		if gen.cfg.Probability != nil {
			c.prob *= gen.literalProb(ref)
			if cutOff > 0 && c.prob < cutOff {
				gen.truncated++
				return nil, false
			}
		}
	}
	return c, true
}

func (gen *generator) literalProb(ref int32) float64 {
	if ref > 0 {
		return gen.cfg.Probability(ref)
	}
	return 1 - gen.cfg.Probability(-ref)
}

// minimize removes duplicates and proper supersets.
func minimize(sets [][]int32) [][]int32 {
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })
	var kept [][]int32
	for _, s := range sets {
		subsumed := false
		for _, t := range kept {
			if len(t) > len(s) {
				break
			}
			if isSubset(t, s) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, s)
		}
	}
	return kept
}

// isSubset reports t ⊆ s for slices sorted by literal magnitude.
func isSubset(t, s []int32) bool {
	i := 0
	for _, lit := range s {
		if i == len(t) {
			return true
		}
		if t[i] == lit {
			i++
		}
	}
	return i == len(t)
}

// sortCanonical orders cut sets by size, then lexicographically by
// literal magnitude with the positive literal first on ties.
func sortCanonical(sets [][]int32) {
	for _, s := range sets {
		sort.Slice(s, func(i, j int) bool { return litLess(s[i], s[j]) })
	}
	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return litLess(a[k], b[k])
			}
		}
		return false
	})
}

func litLess(a, b int32) bool {
	ma, mb := mag(a), mag(b)
	if ma != mb {
		return ma < mb
	}
	return a > b // positive before negative on equal magnitude
}

func magLess(a, b int32) bool { return mag(a) < mag(b) }

func mag(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// forEachCombination invokes fn with every k-subset of [0, n).
func forEachCombination(n, k int, fn func(picked []int)) {
	picked := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(picked) == k {
			fn(picked)
			return
		}
		for i := start; i <= n-(k-len(picked)); i++ {
			picked = append(picked, i)
			rec(i + 1)
			picked = picked[:len(picked)-1]
		}
	}
	rec(0)
}
