// Package eventtree walks an initiating event's tree and produces one
// synthetic top gate per reachable sequence. Each gate is the
// disjunction over all root-to-sequence walks of the conjunction of
// formulas collected along the walk.
package eventtree

import (
	"fmt"
	"sort"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
)

// SequenceTop pairs a sequence with its collected top gate. A nil Top
// means the sequence is reached without collecting anything, so its
// occurrence probability equals the initiating event's.
type SequenceTop struct {
	Sequence *mef.Sequence
	Top      *mef.Gate
}

// Walk traverses the tree of an initiating event and returns the
// sequence tops in deterministic name order.
func Walk(initiating *mef.InitiatingEvent) ([]SequenceTop, error) {
	tree := initiating.Tree()
	if tree == nil {
		return nil, fmt.Errorf("initiating event %q has no event tree", initiating.ID())
	}
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	w := &walker{
		tree:      tree,
		collected: make(map[string][][]mef.Arg),
	}
	if err := w.visit(tree.InitialState(), nil); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(w.collected))
	for name := range w.collected {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SequenceTop, 0, len(names))
	for _, name := range names {
		seq := tree.Sequences()[name]
		top := w.buildTop(fmt.Sprintf("%s.%s", initiating.ID(), name), w.collected[name])
		out = append(out, SequenceTop{Sequence: seq, Top: top})
	}
	return out, nil
}

type walker struct {
	tree *mef.EventTree

	// collected maps a sequence name to the formula stacks of every
	// walk that reached it.
	collected map[string][][]mef.Arg
}

func (w *walker) visit(t mef.Target, stack []mef.Arg) error {
	switch v := t.(type) {
	case *mef.Sequence:
		walk := append([]mef.Arg(nil), stack...)
		w.collected[v.ID()] = append(w.collected[v.ID()], walk)
	case *mef.BranchRef:
		target, ok := w.tree.Branch(v.Name)
		if !ok {
			return fmt.Errorf("undefined branch %q", v.Name)
		}
		return w.visit(target, stack)
	case *mef.Fork:
		for _, path := range v.Paths {
			next := stack
			if path.Collect != nil {
				next = append(append([]mef.Arg(nil), stack...), *path.Collect)
			}
			if err := w.visit(path.Target, next); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown target kind")
	}
	return nil
}

// buildTop assembles the OR-over-walks, AND-within-walk gate. Walks
// that collected nothing make the sequence unconditional, reported as
// a nil top.
func (w *walker) buildTop(name string, walks [][]mef.Arg) *mef.Gate {
	for _, walk := range walks {
		if len(walk) == 0 {
			return nil
		}
	}
	if len(walks) == 0 {
		return nil
	}

	ands := make([]*mef.Gate, 0, len(walks))
	for i, walk := range walks {
		if len(walk) == 1 && !walk[0].Negate {
			if g, ok := walk[0].Node.(*mef.Gate); ok {
				ands = append(ands, g)
				continue
			}
		}
		and := mef.NewGate(fmt.Sprintf("%s.walk%d", name, i), mef.And)
		for _, arg := range walk {
			if arg.Negate {
				and.AddNegArg(arg.Node)
			} else {
				and.AddArg(arg.Node)
			}
		}
		ands = append(ands, and)
	}
	if len(ands) == 1 {
		return ands[0]
	}
	top := mef.NewGate(name, mef.Or)
	for _, and := range ands {
		top.AddArg(and)
	}
	return top
}
