package mef

import "fmt"

// Model is the frozen container of all analysis constructs. It is
// built by an external parser (or programmatically) and revalidated by
// the engine before analysis.
type Model struct {
	name string

	faultTrees  map[string]*FaultTree
	gates       map[string]*Gate
	basicEvents map[string]*BasicEvent
	houseEvents map[string]*HouseEvent
	parameters  map[string]*Parameter
	ccfGroups   map[string]*CCFGroup
	eventTrees  map[string]*EventTree
	initiating  map[string]*InitiatingEvent

	missionTime *MissionTime
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:        name,
		faultTrees:  make(map[string]*FaultTree),
		gates:       make(map[string]*Gate),
		basicEvents: make(map[string]*BasicEvent),
		houseEvents: make(map[string]*HouseEvent),
		parameters:  make(map[string]*Parameter),
		ccfGroups:   make(map[string]*CCFGroup),
		eventTrees:  make(map[string]*EventTree),
		initiating:  make(map[string]*InitiatingEvent),
		missionTime: NewMissionTime(8760),
	}
}

func (m *Model) ID() string                { return m.name }
func (m *Model) MissionTime() *MissionTime { return m.missionTime }

// AddFaultTree registers a fault tree and all its gates.
func (m *Model) AddFaultTree(ft *FaultTree) error {
	if _, ok := m.faultTrees[ft.ID()]; ok {
		return fmt.Errorf("duplicate fault tree %q", ft.ID())
	}
	for id, g := range ft.Gates() {
		if _, ok := m.gates[id]; ok {
			return fmt.Errorf("duplicate gate %q", id)
		}
		m.gates[id] = g
	}
	m.faultTrees[ft.ID()] = ft
	return nil
}

// AddBasicEvent registers a basic event.
func (m *Model) AddBasicEvent(e *BasicEvent) error {
	if _, ok := m.basicEvents[e.ID()]; ok {
		return fmt.Errorf("duplicate basic event %q", e.ID())
	}
	if _, ok := m.houseEvents[e.ID()]; ok {
		return fmt.Errorf("event %q is already a house event", e.ID())
	}
	m.basicEvents[e.ID()] = e
	return nil
}

// AddHouseEvent registers a house event.
func (m *Model) AddHouseEvent(e *HouseEvent) error {
	if _, ok := m.houseEvents[e.ID()]; ok {
		return fmt.Errorf("duplicate house event %q", e.ID())
	}
	if _, ok := m.basicEvents[e.ID()]; ok {
		return fmt.Errorf("event %q is already a basic event", e.ID())
	}
	m.houseEvents[e.ID()] = e
	return nil
}

// AddParameter registers a named parameter.
func (m *Model) AddParameter(p *Parameter) error {
	if _, ok := m.parameters[p.Name]; ok {
		return fmt.Errorf("duplicate parameter %q", p.Name)
	}
	m.parameters[p.Name] = p
	return nil
}

// AddCCFGroup registers a CCF group.
func (m *Model) AddCCFGroup(g *CCFGroup) error {
	if _, ok := m.ccfGroups[g.ID()]; ok {
		return fmt.Errorf("duplicate CCF group %q", g.ID())
	}
	m.ccfGroups[g.ID()] = g
	return nil
}

// AddEventTree registers an event tree.
func (m *Model) AddEventTree(et *EventTree) error {
	if _, ok := m.eventTrees[et.ID()]; ok {
		return fmt.Errorf("duplicate event tree %q", et.ID())
	}
	m.eventTrees[et.ID()] = et
	return nil
}

// AddInitiatingEvent registers an initiating event.
func (m *Model) AddInitiatingEvent(e *InitiatingEvent) error {
	if _, ok := m.initiating[e.ID()]; ok {
		return fmt.Errorf("duplicate initiating event %q", e.ID())
	}
	m.initiating[e.ID()] = e
	return nil
}

// Lookup accessors.

func (m *Model) FaultTree(id string) (*FaultTree, bool) { ft, ok := m.faultTrees[id]; return ft, ok }
func (m *Model) Gate(id string) (*Gate, bool)           { g, ok := m.gates[id]; return g, ok }
func (m *Model) BasicEvent(id string) (*BasicEvent, bool) {
	e, ok := m.basicEvents[id]
	return e, ok
}
func (m *Model) HouseEvent(id string) (*HouseEvent, bool) {
	e, ok := m.houseEvents[id]
	return e, ok
}
func (m *Model) Parameter(id string) (*Parameter, bool) { p, ok := m.parameters[id]; return p, ok }
func (m *Model) CCFGroup(id string) (*CCFGroup, bool)   { g, ok := m.ccfGroups[id]; return g, ok }

// Iteration accessors. Callers must not mutate the returned maps.

func (m *Model) FaultTrees() map[string]*FaultTree             { return m.faultTrees }
func (m *Model) BasicEvents() map[string]*BasicEvent           { return m.basicEvents }
func (m *Model) HouseEvents() map[string]*HouseEvent           { return m.houseEvents }
func (m *Model) Parameters() map[string]*Parameter             { return m.parameters }
func (m *Model) CCFGroups() map[string]*CCFGroup               { return m.ccfGroups }
func (m *Model) EventTrees() map[string]*EventTree             { return m.eventTrees }
func (m *Model) InitiatingEvents() map[string]*InitiatingEvent { return m.initiating }

// Validate revalidates the parser guarantees: entity-level invariants,
// gate DAG acyclicity, and parameter DAG acyclicity.
func (m *Model) Validate() error {
	for _, e := range m.basicEvents {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, ft := range m.faultTrees {
		if err := ft.Validate(); err != nil {
			return err
		}
	}
	for _, g := range m.ccfGroups {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	for _, p := range m.parameters {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, et := range m.eventTrees {
		if err := et.Validate(); err != nil {
			return err
		}
	}
	if err := m.checkGateCycles(); err != nil {
		return err
	}
	return m.checkParameterCycles()
}

// Three-colour DFS over gate arguments. A grey gate seen again is a
// back edge.
func (m *Model) checkGateCycles() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := make(map[string]int, len(m.gates))

	var visit func(g *Gate) error
	visit = func(g *Gate) error {
		colour[g.ID()] = grey
		for _, arg := range g.Args() {
			child, ok := arg.Node.(*Gate)
			if !ok {
				continue
			}
			switch colour[child.ID()] {
			case white:
				if err := visit(child); err != nil {
					return err
				}
			case grey:
				return fmt.Errorf("gate cycle through %q and %q", g.ID(), child.ID())
			}
		}
		colour[g.ID()] = black
		return nil
	}

	for _, g := range m.gates {
		if colour[g.ID()] == white {
			if err := visit(g); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Model) checkParameterCycles() error {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := make(map[*Parameter]int, len(m.parameters))

	var visit func(p *Parameter) error
	visit = func(p *Parameter) error {
		colour[p] = grey
		for _, ref := range parameterRefs(p.Expr) {
			switch colour[ref] {
			case white:
				if err := visit(ref); err != nil {
					return err
				}
			case grey:
				return fmt.Errorf("parameter cycle through %q and %q", p.Name, ref.Name)
			}
		}
		colour[p] = black
		return nil
	}

	for _, p := range m.parameters {
		if colour[p] == white {
			if err := visit(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// parameterRefs collects direct parameter references of an expression.
func parameterRefs(e Expression) []*Parameter {
	var refs []*Parameter
	var walk func(Expression)
	walk = func(e Expression) {
		switch v := e.(type) {
		case *Parameter:
			refs = append(refs, v)
		case *Arithmetic:
			for _, arg := range v.Args {
				walk(arg)
			}
		case *Exponential:
			walk(v.Lambda)
			walk(v.Time)
		case *Uniform:
			walk(v.Lower)
			walk(v.Upper)
		case *Triangular:
			walk(v.Lower)
			walk(v.Mode)
			walk(v.Upper)
		case *Normal:
			walk(v.Mu)
			walk(v.Sigma)
		case *LogNormal:
			walk(v.Mu)
			walk(v.Sigma)
		case *Gamma:
			walk(v.K)
			walk(v.Theta)
		case *Beta:
			walk(v.Alpha)
			walk(v.BetaP)
		case *Poisson:
			walk(v.Lambda)
		}
	}
	if e != nil {
		walk(e)
	}
	return refs
}
