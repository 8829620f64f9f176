// Package graph holds the integer-indexed Boolean formula under
// analysis. Every node is addressed by a positive index; the sign of an
// argument reference encodes negation. Variables (basic events) occupy
// the low index range, gates everything above it, so a reference is
// classified by magnitude alone.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
)

// Op enumerates indexed gate operators. Lowering during preprocessing
// reduces everything to And/Or/AtLeast over signed literals.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpAtLeast
	OpNot
	OpNull
	OpNand
	OpNor
	OpXor
	OpImplies
	OpIff
	// OpTrue is the constant node; a negative reference to it is FALSE.
	OpTrue
)

func (op Op) String() string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpAtLeast:
		return "atleast"
	case OpNot:
		return "not"
	case OpNull:
		return "null"
	case OpNand:
		return "nand"
	case OpNor:
		return "nor"
	case OpXor:
		return "xor"
	case OpImplies:
		return "implies"
	case OpIff:
		return "iff"
	case OpTrue:
		return "true"
	default:
		return "unknown"
	}
}

// Gate is one indexed gate node.
type Gate struct {
	Index int32
	Op    Op
	K     int // minimum number for OpAtLeast
	Args  []int32

	// Module marks a gate whose sub-DAG is reachable only through it.
	// Set by module detection in the preprocessor.
	Module bool

	// DFS bookkeeping for module detection.
	EnterTime int
	ExitTime  int
	LastVisit int
}

// Graph is the arena. Variables are 1..VarCount(); gate indices follow.
type Graph struct {
	vars     []*mef.BasicEvent
	varIdx   map[string]int32
	gates    map[int32]*Gate
	next     int32
	root     int32
	constant int32 // index of the OpTrue node, 0 if absent
}

// Build materializes the indexed graph for one top gate. subs maps a
// basic-event identifier to its substitute node (used by CCF
// expansion); events not in subs map to plain variables. House events
// become references to the constant node.
func Build(top *mef.Gate, subs map[string]mef.Node) (*Graph, error) {
	vars := collectVariables(top, subs)
	g := &Graph{
		vars:   vars,
		varIdx: make(map[string]int32, len(vars)),
		gates:  make(map[int32]*Gate),
		next:   int32(len(vars)) + 1,
	}
	for i, e := range vars {
		g.varIdx[e.ID()] = int32(i) + 1
	}

	memo := make(map[mef.Node]int32)
	rootRef, err := g.convert(top, subs, memo, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	g.root = rootRef
	return g, nil
}

// collectVariables gathers basic events in first-visit order so that
// variable indices are deterministic for a given model.
func collectVariables(top *mef.Gate, subs map[string]mef.Node) []*mef.BasicEvent {
	var vars []*mef.BasicEvent
	seen := make(map[string]bool)

	var walkNode func(n mef.Node)
	walkNode = func(n mef.Node) {
		switch v := n.(type) {
		case *mef.BasicEvent:
			if sub, ok := subs[v.ID()]; ok {
				walkNode(sub)
				return
			}
			if !seen[v.ID()] {
				seen[v.ID()] = true
				vars = append(vars, v)
			}
		case *mef.Gate:
			for _, arg := range v.Args() {
				walkNode(arg.Node)
			}
		}
	}
	walkNode(top)
	return vars
}

func (g *Graph) convert(n mef.Node, subs map[string]mef.Node,
	memo map[mef.Node]int32, visiting map[string]bool) (int32, error) {
	if ref, ok := memo[n]; ok {
		return ref, nil
	}
	switch v := n.(type) {
	case *mef.BasicEvent:
		if sub, ok := subs[v.ID()]; ok {
			return g.convert(sub, subs, memo, visiting)
		}
		return g.varIdx[v.ID()], nil
	case *mef.HouseEvent:
		ref := g.TrueRef()
		if !v.State() {
			ref = -ref
		}
		return ref, nil
	case *mef.Gate:
		if visiting[v.ID()] {
			return 0, fmt.Errorf("gate cycle through %q", v.ID())
		}
		visiting[v.ID()] = true
		defer delete(visiting, v.ID())

		node := g.NewGate(opOf(v.Connective()), v.MinNumber())
		for _, arg := range v.Args() {
			ref, err := g.convert(arg.Node, subs, memo, visiting)
			if err != nil {
				return 0, err
			}
			if arg.Negate {
				ref = -ref
			}
			node.Args = append(node.Args, ref)
		}
		memo[n] = node.Index
		return node.Index, nil
	default:
		return 0, fmt.Errorf("unknown node kind for %q", n.ID())
	}
}

func opOf(c mef.Connective) Op {
	switch c {
	case mef.And:
		return OpAnd
	case mef.Or:
		return OpOr
	case mef.AtLeast:
		return OpAtLeast
	case mef.Not:
		return OpNot
	case mef.Nand:
		return OpNand
	case mef.Nor:
		return OpNor
	case mef.Xor:
		return OpXor
	case mef.Null:
		return OpNull
	case mef.Implies:
		return OpImplies
	case mef.Iff:
		return OpIff
	default:
		return OpNull
	}
}

// NewGate allocates a fresh gate node.
func (g *Graph) NewGate(op Op, k int) *Gate {
	node := &Gate{Index: g.next, Op: op, K: k}
	g.gates[g.next] = node
	g.next++
	return node
}

// TrueRef returns the index of the shared TRUE node, creating it on
// first use. A negative reference to it denotes FALSE.
func (g *Graph) TrueRef() int32 {
	if g.constant == 0 {
		node := g.NewGate(OpTrue, 0)
		g.constant = node.Index
	}
	return g.constant
}

// Constant returns the TRUE node index, or 0 if the graph has none.
func (g *Graph) Constant() int32 { return g.constant }

// ClearConstant forgets the constant node after constant propagation
// has removed every reference to it.
func (g *Graph) ClearConstant() {
	if g.constant != 0 {
		delete(g.gates, g.constant)
		g.constant = 0
	}
}

// Root returns the signed reference to the top of the formula.
func (g *Graph) Root() int32 { return g.root }

// SetRoot replaces the top reference.
func (g *Graph) SetRoot(ref int32) { g.root = ref }

// Gate resolves a gate reference; the sign is ignored.
func (g *Graph) Gate(ref int32) *Gate {
	return g.gates[abs32(ref)]
}

// IsVariable reports whether the reference points at a basic-event leaf.
func (g *Graph) IsVariable(ref int32) bool {
	idx := abs32(ref)
	return idx >= 1 && idx <= int32(len(g.vars))
}

// IsConstant reports whether the reference points at the TRUE node.
func (g *Graph) IsConstant(ref int32) bool {
	return g.constant != 0 && abs32(ref) == g.constant
}

// VarCount returns the number of variable leaves.
func (g *Graph) VarCount() int { return len(g.vars) }

// Variable returns the basic event behind a variable reference.
func (g *Graph) Variable(ref int32) *mef.BasicEvent {
	return g.vars[abs32(ref)-1]
}

// VariableIndex returns the variable index of a basic event, or 0.
func (g *Graph) VariableIndex(id string) int32 { return g.varIdx[id] }

// Gates returns the live gate arena. Callers must not mutate the map.
func (g *Graph) Gates() map[int32]*Gate { return g.gates }

// Remove deletes a gate from the arena. The caller is responsible for
// having removed all references to it.
func (g *Graph) Remove(idx int32) { delete(g.gates, idx) }

// GateCount returns the number of live gates.
func (g *Graph) GateCount() int { return len(g.gates) }

// ParentCounts computes, for every gate index, how many argument slots
// reference it from gates reachable from the root.
func (g *Graph) ParentCounts() map[int32]int {
	counts := make(map[int32]int, len(g.gates))
	seen := make(map[int32]bool, len(g.gates))

	var visit func(ref int32)
	visit = func(ref int32) {
		if g.IsVariable(ref) {
			return
		}
		node := g.Gate(ref)
		if node == nil {
			return
		}
		if seen[node.Index] {
			return
		}
		seen[node.Index] = true
		for _, arg := range node.Args {
			if !g.IsVariable(arg) {
				counts[abs32(arg)]++
			}
			visit(arg)
		}
	}
	if !g.IsVariable(g.root) {
		counts[abs32(g.root)]++
	}
	visit(g.root)
	return counts
}

// GC drops gates unreachable from the root.
func (g *Graph) GC() {
	reachable := make(map[int32]bool, len(g.gates))
	var visit func(ref int32)
	visit = func(ref int32) {
		if g.IsVariable(ref) {
			return
		}
		idx := abs32(ref)
		if reachable[idx] {
			return
		}
		node := g.gates[idx]
		if node == nil {
			return
		}
		reachable[idx] = true
		for _, arg := range node.Args {
			visit(arg)
		}
	}
	visit(g.root)
	for idx := range g.gates {
		if !reachable[idx] {
			if idx == g.constant {
				g.constant = 0
			}
			delete(g.gates, idx)
		}
	}
}

// Dump renders the reachable graph as a canonical string, used for
// structural equality in tests. Shared gates are labelled once.
func (g *Graph) Dump() string {
	var sb strings.Builder
	labels := make(map[int32]string)
	var render func(ref int32) string
	render = func(ref int32) string {
		sign := ""
		if ref < 0 {
			sign = "~"
		}
		if g.IsVariable(ref) {
			return sign + g.Variable(ref).ID()
		}
		node := g.Gate(ref)
		if node == nil {
			return sign + "?"
		}
		if node.Op == OpTrue {
			if ref < 0 {
				return "FALSE"
			}
			return "TRUE"
		}
		if label, ok := labels[node.Index]; ok {
			return sign + label
		}
		labels[node.Index] = fmt.Sprintf("G%d", node.Index)
		parts := make([]string, 0, len(node.Args))
		for _, arg := range node.Args {
			parts = append(parts, render(arg))
		}
		sort.Strings(parts)
		op := node.Op.String()
		if node.Op == OpAtLeast {
			op = fmt.Sprintf("atleast/%d", node.K)
		}
		return fmt.Sprintf("%s%s(%s)", sign, op, strings.Join(parts, " "))
	}
	sb.WriteString(render(g.root))
	return sb.String()
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
