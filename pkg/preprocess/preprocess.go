// Package preprocess rewrites an indexed Boolean graph into the
// canonical form expected by cut-set generation: only AND, OR, and
// structured ATLEAST gates remain, negation appears on variable
// literals only, constants and pass-through gates are gone, and
// independent sub-DAGs are marked as modules.
package preprocess

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
)

// atleastExpandLimit bounds the eager OR-of-ANDs expansion of an
// ATLEAST gate. Larger vote gates stay structured and are decomposed
// lazily by the cut-set generator.
const atleastExpandLimit = 64

// maxIterations caps the rewrite fixpoint loop. The passes strictly
// shrink (node count, negation count, depth), so hitting the cap means
// an internal bug rather than a hard input.
const maxIterations = 100

// Run rewrites the graph to a fixpoint and detects modules.
// Cancellation is checked between passes.
func Run(ctx context.Context, g *graph.Graph) error {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == maxIterations {
			return fmt.Errorf("preprocessing did not converge after %d iterations", maxIterations)
		}
		changed := normalize(g)
		changed = propagateConstants(g) || changed
		changed = coalesce(g) || changed
		changed = optimize(g) || changed
		if !changed {
			break
		}
	}
	g.GC()
	detectModules(g)
	return nil
}

// normalize lowers exotic connectives to AND/OR/ATLEAST and pushes all
// negations down to variable literals (De Morgan), cloning shared
// gates that are referenced under both polarities.
func normalize(g *graph.Graph) bool {
	n := &normalizer{
		g:       g,
		lowered: make(map[int32]int32),
		twins:   make(map[int32]int32),
		pushed:  make(map[int32]bool),
	}
	root := n.push(n.lower(g.Root()))
	if root != g.Root() {
		n.changed = true
	}
	g.SetRoot(root)
	return n.changed
}

type normalizer struct {
	g       *graph.Graph
	lowered map[int32]int32 // gate index -> lowered signed reference
	twins   map[int32]int32 // gate index -> its De Morgan twin
	pushed  map[int32]bool
	changed bool
}

// lower rewrites the sub-formula so every reachable gate is AND, OR,
// or ATLEAST. The returned reference may be negative.
func (n *normalizer) lower(ref int32) int32 {
	sign := int32(1)
	if ref < 0 {
		sign = -1
	}
	if n.g.IsVariable(ref) || n.g.IsConstant(ref) {
		return ref
	}
	idx := ref
	if idx < 0 {
		idx = -idx
	}
	if r, ok := n.lowered[idx]; ok {
		return sign * r
	}
	node := n.g.Gate(idx)

	var result int32
	switch node.Op {
	case graph.OpNull:
		result = n.lower(node.Args[0])
		n.changed = true
	case graph.OpNot:
		result = -n.lower(node.Args[0])
		n.changed = true
	case graph.OpNand, graph.OpNor:
		op := graph.OpAnd
		if node.Op == graph.OpNor {
			op = graph.OpOr
		}
		inner := n.g.NewGate(op, 0)
		for _, arg := range node.Args {
			inner.Args = append(inner.Args, n.lower(arg))
		}
		result = -inner.Index
		n.changed = true
	case graph.OpImplies:
		or := n.g.NewGate(graph.OpOr, 0)
		or.Args = append(or.Args, -n.lower(node.Args[0]), n.lower(node.Args[1]))
		result = or.Index
		n.changed = true
	case graph.OpIff:
		result = n.iffPair(n.lower(node.Args[0]), n.lower(node.Args[1]))
		n.changed = true
	case graph.OpXor:
		cur := n.lower(node.Args[0])
		for _, arg := range node.Args[1:] {
			cur = -n.iffPair(cur, n.lower(arg))
		}
		result = cur
		n.changed = true
	case graph.OpAtLeast:
		result = n.lowerAtLeast(node)
	default: // OpAnd, OpOr
		for i, arg := range node.Args {
			r := n.lower(arg)
			if r != arg {
				node.Args[i] = r
				n.changed = true
			}
		}
		result = idx
	}
	n.lowered[idx] = result
	return sign * result
}

// iffPair builds (a AND b) OR (NOT a AND NOT b).
func (n *normalizer) iffPair(a, b int32) int32 {
	both := n.g.NewGate(graph.OpAnd, 0)
	both.Args = append(both.Args, a, b)
	neither := n.g.NewGate(graph.OpAnd, 0)
	neither.Args = append(neither.Args, -a, -b)
	or := n.g.NewGate(graph.OpOr, 0)
	or.Args = append(or.Args, both.Index, neither.Index)
	return or.Index
}

func (n *normalizer) lowerAtLeast(node *graph.Gate) int32 {
	for i, arg := range node.Args {
		r := n.lower(arg)
		if r != arg {
			node.Args[i] = r
			n.changed = true
		}
	}
	size := len(node.Args)
	switch {
	case node.K <= 1:
		node.Op = graph.OpOr
		node.K = 0
		n.changed = true
		return node.Index
	case node.K == size:
		node.Op = graph.OpAnd
		node.K = 0
		n.changed = true
		return node.Index
	case choose(size, node.K) <= atleastExpandLimit:
		or := n.g.NewGate(graph.OpOr, 0)
		forEachCombination(size, node.K, func(picked []int) {
			and := n.g.NewGate(graph.OpAnd, 0)
			for _, i := range picked {
				and.Args = append(and.Args, node.Args[i])
			}
			or.Args = append(or.Args, and.Index)
		})
		n.changed = true
		return or.Index
	default:
		return node.Index
	}
}

// push makes every gate reference positive by materializing De Morgan
// twins for negatively referenced gates.
func (n *normalizer) push(ref int32) int32 {
	if n.g.IsVariable(ref) || n.g.IsConstant(ref) {
		return ref
	}
	if ref > 0 {
		node := n.g.Gate(ref)
		if n.pushed[node.Index] {
			return ref
		}
		n.pushed[node.Index] = true
		for i, arg := range node.Args {
			r := n.push(arg)
			if r != arg {
				node.Args[i] = r
				n.changed = true
			}
		}
		return ref
	}

	idx := -ref
	if twin, ok := n.twins[idx]; ok {
		return twin
	}
	node := n.g.Gate(idx)
	var op graph.Op
	k := 0
	switch node.Op {
	case graph.OpAnd:
		op = graph.OpOr
	case graph.OpOr:
		op = graph.OpAnd
	case graph.OpAtLeast:
		op = graph.OpAtLeast
		k = len(node.Args) - node.K + 1
	}
	twin := n.g.NewGate(op, k)
	n.twins[idx] = twin.Index
	n.twins[twin.Index] = idx
	n.pushed[twin.Index] = true
	for _, arg := range node.Args {
		twin.Args = append(twin.Args, n.push(-arg))
	}
	n.changed = true
	return twin.Index
}

// propagateConstants folds the TRUE node through Boolean identities and
// collapses degenerate gates (empty or single-argument AND/OR).
func propagateConstants(g *graph.Graph) bool {
	p := &propagator{g: g, memo: make(map[int32]int32)}
	root := p.eval(g.Root())
	if root != g.Root() {
		p.changed = true
		g.SetRoot(root)
	}
	return p.changed
}

type propagator struct {
	g       *graph.Graph
	memo    map[int32]int32
	changed bool
}

func (p *propagator) eval(ref int32) int32 {
	sign := int32(1)
	if ref < 0 {
		sign = -1
	}
	if p.g.IsVariable(ref) || p.g.IsConstant(ref) {
		return ref
	}
	idx := ref
	if idx < 0 {
		idx = -idx
	}
	if r, ok := p.memo[idx]; ok {
		return sign * r
	}
	node := p.g.Gate(idx)

	args := node.Args[:0]
	k := node.K
	var constResult int32
	for _, arg := range node.Args {
		r := p.eval(arg)
		if r != arg {
			p.changed = true
		}
		if !p.g.IsConstant(r) {
			args = append(args, r)
			continue
		}
		p.changed = true
		isTrue := r > 0
		switch node.Op {
		case graph.OpAnd:
			if !isTrue {
				constResult = -p.g.TrueRef()
			}
		case graph.OpOr:
			if isTrue {
				constResult = p.g.TrueRef()
			}
		case graph.OpAtLeast:
			if isTrue {
				k--
			}
		}
		if constResult != 0 {
			break
		}
	}
	node.Args = args
	node.K = k

	result := int32(node.Index)
	switch {
	case constResult != 0:
		result = constResult
	case node.Op == graph.OpAtLeast && node.K <= 0:
		result = p.g.TrueRef()
		p.changed = true
	case node.Op == graph.OpAtLeast && node.K > len(node.Args):
		result = -p.g.TrueRef()
		p.changed = true
	case node.Op == graph.OpAtLeast && node.K == 1:
		node.Op = graph.OpOr
		node.K = 0
		p.changed = true
	case node.Op == graph.OpAtLeast && node.K == len(node.Args):
		node.Op = graph.OpAnd
		node.K = 0
		p.changed = true
	case len(node.Args) == 0 && node.Op == graph.OpAnd:
		result = p.g.TrueRef()
		p.changed = true
	case len(node.Args) == 0 && node.Op == graph.OpOr:
		result = -p.g.TrueRef()
		p.changed = true
	case len(node.Args) == 1 && (node.Op == graph.OpAnd || node.Op == graph.OpOr):
		result = node.Args[0]
		p.changed = true
	}
	p.memo[idx] = result
	return sign * result
}

// coalesce flattens AND-under-AND and OR-under-OR when the child gate
// has a single parent, preserving sharing everywhere else.
func coalesce(g *graph.Graph) bool {
	parents := g.ParentCounts()
	changed := false
	for _, node := range g.Gates() {
		if node.Op != graph.OpAnd && node.Op != graph.OpOr {
			continue
		}
		var flat []int32
		spliced := false
		for _, arg := range node.Args {
			if arg > 0 && !g.IsVariable(arg) && !g.IsConstant(arg) {
				child := g.Gate(arg)
				if child != nil && child.Op == node.Op && parents[child.Index] == 1 {
					flat = append(flat, child.Args...)
					spliced = true
					continue
				}
			}
			flat = append(flat, arg)
		}
		if spliced {
			node.Args = flat
			changed = true
		}
	}
	if changed {
		g.GC()
	}
	return changed
}

// optimize applies idempotence, complementary-argument collapse, and
// literal absorption.
func optimize(g *graph.Graph) bool {
	o := &optimizer{g: g, memo: make(map[int32]int32)}
	root := o.eval(g.Root())
	if root != g.Root() {
		o.changed = true
		g.SetRoot(root)
	}
	return o.changed
}

type optimizer struct {
	g       *graph.Graph
	memo    map[int32]int32
	changed bool
}

func (o *optimizer) eval(ref int32) int32 {
	sign := int32(1)
	if ref < 0 {
		sign = -1
	}
	if o.g.IsVariable(ref) || o.g.IsConstant(ref) {
		return ref
	}
	idx := ref
	if idx < 0 {
		idx = -idx
	}
	if r, ok := o.memo[idx]; ok {
		return sign * r
	}
	node := o.g.Gate(idx)

	seen := make(map[int32]bool, len(node.Args))
	args := node.Args[:0]
	complementary := false
	for _, arg := range node.Args {
		r := o.eval(arg)
		if r != arg {
			o.changed = true
		}
		if seen[r] {
			o.changed = true
			continue // idempotence
		}
		if seen[-r] {
			complementary = true
		}
		seen[r] = true
		args = append(args, r)
	}
	node.Args = args

	result := int32(node.Index)
	switch {
	case complementary && node.Op == graph.OpAnd:
		result = -o.g.TrueRef()
		o.changed = true
	case complementary && node.Op == graph.OpOr:
		result = o.g.TrueRef()
		o.changed = true
	default:
		if node.Op == graph.OpAnd || node.Op == graph.OpOr {
			if o.absorb(node) {
				o.changed = true
			}
		}
		if len(node.Args) == 1 && (node.Op == graph.OpAnd || node.Op == graph.OpOr) {
			result = node.Args[0]
			o.changed = true
		}
	}
	o.memo[idx] = result
	return sign * result
}

// absorb removes a child gate argument subsumed by a sibling literal:
// a OR (a AND b) = a, and dually a AND (a OR b) = a.
func (o *optimizer) absorb(node *graph.Gate) bool {
	literals := make(map[int32]bool)
	for _, arg := range node.Args {
		if o.g.IsVariable(arg) {
			literals[arg] = true
		}
	}
	if len(literals) == 0 {
		return false
	}
	dual := graph.OpOr
	if node.Op == graph.OpOr {
		dual = graph.OpAnd
	}
	args := node.Args[:0]
	removed := false
	for _, arg := range node.Args {
		if arg > 0 && !o.g.IsVariable(arg) && !o.g.IsConstant(arg) {
			child := o.g.Gate(arg)
			if child != nil && child.Op == dual {
				subsumed := false
				for _, carg := range child.Args {
					if literals[carg] {
						subsumed = true
						break
					}
				}
				if subsumed {
					removed = true
					continue
				}
			}
		}
		args = append(args, arg)
	}
	node.Args = args
	return removed
}

func choose(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 0; i < k; i++ {
		result = result * (n - i) / (i + 1)
		if result > 1<<30 {
			return 1 << 30
		}
	}
	return result
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
