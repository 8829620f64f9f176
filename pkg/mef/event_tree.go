package mef

import "fmt"

// PathState labels an event-tree fork path.
type PathState int

const (
	Success PathState = iota
	Failure
	Bypass
)

func (s PathState) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Bypass:
		return "bypass"
	default:
		return "unknown"
	}
}

// Sequence is a named event-tree end state.
type Sequence struct {
	name string
}

func NewSequence(name string) *Sequence { return &Sequence{name: name} }

func (s *Sequence) ID() string { return s.name }

// Target is where a path leads: a Fork, a *Sequence, or a BranchRef.
type Target interface {
	isTarget()
}

// Fork branches on a functional event.
type Fork struct {
	FunctionalEvent string
	Paths           []Path
}

func (*Fork) isTarget() {}

// BranchRef points at a named branch of the same event tree, inlined
// by the walker. Reference cycles are a validation error.
type BranchRef struct {
	Name string
}

func (*BranchRef) isTarget() {}

func (*Sequence) isTarget() {}

// Path is one labelled outcome of a fork. Collect, when set, is a
// formula contribution AND-joined into the walk; bypass paths must not
// collect anything.
type Path struct {
	State   PathState
	Collect *Arg
	Target  Target
}

// InitiatingEvent starts an event tree analysis.
type InitiatingEvent struct {
	name string
	tree *EventTree
}

func NewInitiatingEvent(name string, tree *EventTree) *InitiatingEvent {
	return &InitiatingEvent{name: name, tree: tree}
}

func (e *InitiatingEvent) ID() string       { return e.name }
func (e *InitiatingEvent) Tree() *EventTree { return e.tree }

// EventTree is a tree of functional-event forks producing sequences.
type EventTree struct {
	name      string
	initial   Target
	branches  map[string]Target
	sequences map[string]*Sequence
}

func NewEventTree(name string) *EventTree {
	return &EventTree{
		name:      name,
		branches:  make(map[string]Target),
		sequences: make(map[string]*Sequence),
	}
}

func (et *EventTree) ID() string { return et.name }

// SetInitialState sets the traversal entry point.
func (et *EventTree) SetInitialState(t Target) { et.initial = t }

func (et *EventTree) InitialState() Target { return et.initial }

// AddBranch registers a named branch for BranchRef targets.
func (et *EventTree) AddBranch(name string, t Target) error {
	if _, ok := et.branches[name]; ok {
		return fmt.Errorf("event tree %q already has branch %q", et.name, name)
	}
	et.branches[name] = t
	return nil
}

// Branch resolves a named branch.
func (et *EventTree) Branch(name string) (Target, bool) {
	t, ok := et.branches[name]
	return t, ok
}

// AddSequence registers a sequence end state.
func (et *EventTree) AddSequence(s *Sequence) error {
	if _, ok := et.sequences[s.ID()]; ok {
		return fmt.Errorf("event tree %q already has sequence %q", et.name, s.ID())
	}
	et.sequences[s.ID()] = s
	return nil
}

func (et *EventTree) Sequences() map[string]*Sequence { return et.sequences }

// Validate checks the tree shape: an initial state exists, bypass paths
// collect nothing, and branch references resolve.
func (et *EventTree) Validate() error {
	if et.initial == nil {
		return fmt.Errorf("event tree %q has no initial state", et.name)
	}
	return et.validateTarget(et.initial, make(map[string]bool))
}

func (et *EventTree) validateTarget(t Target, visiting map[string]bool) error {
	switch v := t.(type) {
	case *Sequence:
		if _, ok := et.sequences[v.ID()]; !ok {
			return fmt.Errorf("event tree %q reaches unregistered sequence %q", et.name, v.ID())
		}
	case *BranchRef:
		if visiting[v.Name] {
			return fmt.Errorf("event tree %q has a branch reference cycle at %q", et.name, v.Name)
		}
		target, ok := et.branches[v.Name]
		if !ok {
			return fmt.Errorf("event tree %q references undefined branch %q", et.name, v.Name)
		}
		visiting[v.Name] = true
		if err := et.validateTarget(target, visiting); err != nil {
			return err
		}
		delete(visiting, v.Name)
	case *Fork:
		if len(v.Paths) == 0 {
			return fmt.Errorf("event tree %q fork on %q has no paths", et.name, v.FunctionalEvent)
		}
		for _, path := range v.Paths {
			if path.State == Bypass && path.Collect != nil {
				return fmt.Errorf("event tree %q: bypass path on %q must not collect a formula",
					et.name, v.FunctionalEvent)
			}
			if err := et.validateTarget(path.Target, visiting); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("event tree %q has an unknown target kind", et.name)
	}
	return nil
}
