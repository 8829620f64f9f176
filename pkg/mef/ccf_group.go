package mef

import "fmt"

// CCFModel enumerates the supported common-cause-failure models.
type CCFModel int

const (
	BetaFactor CCFModel = iota
	MGL
	AlphaFactor
	PhiFactor
)

func (m CCFModel) String() string {
	switch m {
	case BetaFactor:
		return "beta-factor"
	case MGL:
		return "MGL"
	case AlphaFactor:
		return "alpha-factor"
	case PhiFactor:
		return "phi-factor"
	default:
		return "unknown"
	}
}

// CCFGroup is a set of basic events that can fail together.
// The group carries the total failure probability Q shared by the
// members and the model factors; member-level probabilities are
// produced by the expansion, not taken from the members themselves.
type CCFGroup struct {
	name    string
	model   CCFModel
	members []*BasicEvent
	q       Expression // total failure probability per member

	// factors are model level factors:
	//   beta-factor: one factor (beta)
	//   MGL:         factors for levels 2..n (beta, gamma, delta, ...)
	//   alpha-factor: factors for levels 1..n
	//   phi-factor:  factors for levels 1..n (must sum to one)
	factors []Expression
}

// NewCCFGroup creates an empty CCF group.
func NewCCFGroup(name string, model CCFModel, q Expression) *CCFGroup {
	return &CCFGroup{name: name, model: model, q: q}
}

func (g *CCFGroup) ID() string             { return g.name }
func (g *CCFGroup) Model() CCFModel        { return g.model }
func (g *CCFGroup) Members() []*BasicEvent { return g.members }
func (g *CCFGroup) Q() Expression          { return g.q }
func (g *CCFGroup) Factors() []Expression  { return g.factors }

// AddMember registers a basic event with the group.
func (g *CCFGroup) AddMember(e *BasicEvent) error {
	if e.ccfGroup != "" && e.ccfGroup != g.name {
		return fmt.Errorf("basic event %q already belongs to CCF group %q", e.ID(), e.ccfGroup)
	}
	for _, m := range g.members {
		if m.ID() == e.ID() {
			return fmt.Errorf("CCF group %q already has member %q", g.name, e.ID())
		}
	}
	e.ccfGroup = g.name
	g.members = append(g.members, e)
	return nil
}

// AddFactor appends the next level factor.
func (g *CCFGroup) AddFactor(f Expression) {
	g.factors = append(g.factors, f)
}

// Validate checks group size, the distribution, and factor domains.
func (g *CCFGroup) Validate() error {
	n := len(g.members)
	if n < 2 {
		return fmt.Errorf("CCF group %q needs at least two members, got %d", g.name, n)
	}
	if g.q == nil {
		return fmt.Errorf("CCF group %q has no distribution", g.name)
	}
	if err := g.q.Validate(); err != nil {
		return fmt.Errorf("CCF group %q distribution: %w", g.name, err)
	}
	if q := g.q.Mean(); q < 0 || q > 1 {
		return fmt.Errorf("CCF group %q total probability %f is outside [0, 1]", g.name, q)
	}

	want := 0
	switch g.model {
	case BetaFactor:
		want = 1
	case MGL:
		want = n - 1
	case AlphaFactor, PhiFactor:
		want = n
	}
	if len(g.factors) != want {
		return fmt.Errorf("CCF group %q (%s) expects %d factors, got %d",
			g.name, g.model, want, len(g.factors))
	}

	sum := 0.0
	for i, f := range g.factors {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("CCF group %q factor %d: %w", g.name, i, err)
		}
		v := f.Mean()
		if v < 0 || v > 1 {
			return fmt.Errorf("CCF group %q factor %d value %f is outside [0, 1]", g.name, i, v)
		}
		sum += v
	}
	if g.model == PhiFactor && (sum < 1-1e-9 || sum > 1+1e-9) {
		return fmt.Errorf("CCF group %q phi factors sum to %f, expected 1", g.name, sum)
	}
	return nil
}
