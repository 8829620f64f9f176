package mef

import "fmt"

// Node is anything a gate argument can point at: a basic event, a house
// event, or another gate.
type Node interface {
	ID() string
}

// BasicEvent is an atomic stochastic input with a probability expression.
// Immutable once the model is frozen for analysis.
type BasicEvent struct {
	name string
	prob Expression

	// CCFGroup is the name of the common-cause group this event belongs
	// to, or empty. Set by CCFGroup.AddMember.
	ccfGroup string
}

// NewBasicEvent creates a basic event. The probability expression may be
// nil for purely qualitative analysis.
func NewBasicEvent(name string, prob Expression) *BasicEvent {
	return &BasicEvent{name: name, prob: prob}
}

func (e *BasicEvent) ID() string { return e.name }

// Probability returns the event's probability expression, or nil.
func (e *BasicEvent) Probability() Expression { return e.prob }

// SetProbability replaces the probability expression. Only valid before
// the model is frozen.
func (e *BasicEvent) SetProbability(expr Expression) { e.prob = expr }

// CCFGroupName returns the owning CCF group name, or empty.
func (e *BasicEvent) CCFGroupName() string { return e.ccfGroup }

// Mean evaluates the point probability of the event.
func (e *BasicEvent) Mean() float64 {
	if e.prob == nil {
		return 0
	}
	return e.prob.Mean()
}

// Validate checks the probability expression and its range.
func (e *BasicEvent) Validate() error {
	if e.name == "" {
		return fmt.Errorf("basic event without a name")
	}
	if e.prob == nil {
		return nil
	}
	if err := e.prob.Validate(); err != nil {
		return fmt.Errorf("basic event %q: %w", e.name, err)
	}
	if p := e.prob.Mean(); p < 0 || p > 1 {
		return fmt.Errorf("basic event %q probability %f is outside [0, 1]", e.name, p)
	}
	return nil
}

// HouseEvent is a deterministic Boolean constant leaf.
type HouseEvent struct {
	name  string
	state bool
}

// NewHouseEvent creates a house event with the given constant state.
func NewHouseEvent(name string, state bool) *HouseEvent {
	return &HouseEvent{name: name, state: state}
}

func (e *HouseEvent) ID() string  { return e.name }
func (e *HouseEvent) State() bool { return e.state }

// SetState flips the constant. Only valid before the model is frozen.
func (e *HouseEvent) SetState(state bool) { e.state = state }
