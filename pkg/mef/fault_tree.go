package mef

import "fmt"

// FaultTree is a named collection of gates with a designated top gate.
type FaultTree struct {
	name  string
	gates map[string]*Gate
	top   *Gate
}

// NewFaultTree creates an empty fault tree.
func NewFaultTree(name string) *FaultTree {
	return &FaultTree{
		name:  name,
		gates: make(map[string]*Gate),
	}
}

func (ft *FaultTree) ID() string { return ft.name }

// AddGate registers a gate with the tree. The first gate added becomes
// the provisional top gate until SetTop overrides it.
func (ft *FaultTree) AddGate(g *Gate) error {
	if _, ok := ft.gates[g.ID()]; ok {
		return fmt.Errorf("fault tree %q already has gate %q", ft.name, g.ID())
	}
	ft.gates[g.ID()] = g
	if ft.top == nil {
		ft.top = g
	}
	return nil
}

// SetTop designates the analysis target gate.
func (ft *FaultTree) SetTop(g *Gate) error {
	if _, ok := ft.gates[g.ID()]; !ok {
		return fmt.Errorf("fault tree %q does not contain gate %q", ft.name, g.ID())
	}
	ft.top = g
	return nil
}

// Top returns the designated top gate, or nil for an empty tree.
func (ft *FaultTree) Top() *Gate { return ft.top }

// Gates returns the registered gates keyed by identifier.
func (ft *FaultTree) Gates() map[string]*Gate { return ft.gates }

// Validate checks every gate and that the top gate is reachable only
// from the tree itself (non-top gates must have a parent inside the
// tree; more than one parentless gate means multiple tops).
func (ft *FaultTree) Validate() error {
	if ft.top == nil {
		return fmt.Errorf("fault tree %q has no gates", ft.name)
	}
	for _, g := range ft.gates {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("fault tree %q: %w", ft.name, err)
		}
	}

	hasParent := make(map[string]bool, len(ft.gates))
	for _, g := range ft.gates {
		for _, arg := range g.Args() {
			if child, ok := arg.Node.(*Gate); ok {
				hasParent[child.ID()] = true
			}
		}
	}
	orphans := 0
	for id := range ft.gates {
		if !hasParent[id] {
			orphans++
		}
	}
	if orphans > 1 {
		return fmt.Errorf("fault tree %q has %d top gates, expected one", ft.name, orphans)
	}
	return nil
}
