package mef

import (
	"strings"
	"testing"
)

func newTree(t *testing.T, name string, gates ...*Gate) *FaultTree {
	t.Helper()
	ft := NewFaultTree(name)
	for _, g := range gates {
		if err := ft.AddGate(g); err != nil {
			t.Fatalf("AddGate(%s): %v", g.ID(), err)
		}
	}
	return ft
}

func TestGateValidate(t *testing.T) {
	a := NewBasicEvent("a", NewConstant(0.1))
	b := NewBasicEvent("b", NewConstant(0.2))

	tests := []struct {
		name string
		gate *Gate
		ok   bool
	}{
		{"or with args", NewGate("g", Or).AddArg(a).AddArg(b), true},
		{"or empty", NewGate("g", Or), false},
		{"not unary", NewGate("g", Not).AddArg(a), true},
		{"not binary", NewGate("g", Not).AddArg(a).AddArg(b), false},
		{"null unary", NewGate("g", Null).AddArg(a), true},
		{"implies binary", NewGate("g", Implies).AddArg(a).AddArg(b), true},
		{"implies unary", NewGate("g", Implies).AddArg(a), false},
		{"vote in range", NewVoteGate("g", 2).AddArg(a).AddArg(b), true},
		{"vote above n", NewVoteGate("g", 3).AddArg(a).AddArg(b), false},
		{"vote zero", NewVoteGate("g", 0).AddArg(a).AddArg(b), false},
		{"duplicate arg", NewGate("g", Or).AddArg(a).AddArg(a), false},
		{"duplicate negated arg", NewGate("g", Or).AddNegArg(a).AddNegArg(a), false},
		{"complementary pair", NewGate("g", Or).AddArg(a).AddNegArg(a), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gate.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate accepted an invalid gate")
			}
		})
	}
}

func TestFaultTreeSingleTop(t *testing.T) {
	a := NewBasicEvent("a", NewConstant(0.1))
	b := NewBasicEvent("b", NewConstant(0.2))

	child := NewGate("child", Or).AddArg(a).AddArg(b)
	top := NewGate("top", And).AddArg(child).AddArg(a)
	ft := newTree(t, "ft", top, child)

	if ft.Top() != top {
		t.Errorf("Top = %s, want top", ft.Top().ID())
	}
	if err := ft.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	// A second parentless gate means an ambiguous top.
	stray := NewGate("stray", Or).AddArg(b)
	if err := ft.AddGate(stray); err != nil {
		t.Fatalf("AddGate: %v", err)
	}
	if err := ft.Validate(); err == nil {
		t.Error("two parentless gates must fail validation")
	}
}

func TestFaultTreeSetTop(t *testing.T) {
	a := NewBasicEvent("a", NewConstant(0.1))
	g1 := NewGate("g1", Or).AddArg(a)
	ft := newTree(t, "ft", g1)

	outside := NewGate("outside", Or).AddArg(a)
	if err := ft.SetTop(outside); err == nil {
		t.Error("SetTop must reject a gate outside the tree")
	}
}

func TestModelRegistration(t *testing.T) {
	m := NewModel("plant")
	a := NewBasicEvent("a", NewConstant(0.1))

	if err := m.AddBasicEvent(a); err != nil {
		t.Fatalf("AddBasicEvent: %v", err)
	}
	if err := m.AddBasicEvent(NewBasicEvent("a", NewConstant(0.5))); err == nil {
		t.Error("duplicate basic event must be rejected")
	}
	if err := m.AddHouseEvent(NewHouseEvent("a", true)); err == nil {
		t.Error("house event sharing a basic event name must be rejected")
	}

	top := NewGate("top", Or).AddArg(a)
	if err := m.AddFaultTree(newTree(t, "ft", top)); err != nil {
		t.Fatalf("AddFaultTree: %v", err)
	}
	if err := m.AddFaultTree(newTree(t, "ft2", NewGate("top", Or).AddArg(a))); err == nil {
		t.Error("gate name reused across trees must be rejected")
	}

	if g, ok := m.Gate("top"); !ok || g != top {
		t.Error("registered gate not found through the model")
	}
}

func TestModelValidateGateCycle(t *testing.T) {
	m := NewModel("plant")
	a := NewBasicEvent("a", NewConstant(0.1))
	if err := m.AddBasicEvent(a); err != nil {
		t.Fatal(err)
	}

	g1 := NewGate("g1", Or).AddArg(a)
	g2 := NewGate("g2", Or).AddArg(g1)
	g1.AddArg(g2)

	if err := m.AddFaultTree(newTree(t, "ft", g1, g2)); err != nil {
		t.Fatal(err)
	}
	err := m.Validate()
	if err == nil {
		t.Fatal("gate cycle must fail validation")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error %q does not mention the cycle", err)
	}
}

func TestModelValidateParameterCycle(t *testing.T) {
	m := NewModel("plant")

	p1 := NewParameter("p1", nil)
	p2 := NewParameter("p2", NewArithmetic(OpMul, NewConstant(2), p1))
	p1.Expr = NewArithmetic(OpAdd, NewConstant(1), p2)

	if err := m.AddParameter(p1); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParameter(p2); err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err == nil {
		t.Error("parameter cycle must fail validation")
	}
}

func TestModelValidateSharedParameterDiamond(t *testing.T) {
	m := NewModel("plant")

	base := NewParameter("base", NewConstant(1e-3))
	left := NewParameter("left", NewArithmetic(OpMul, NewConstant(2), base))
	right := NewParameter("right", NewArithmetic(OpMul, NewConstant(3), base))
	top := NewParameter("top", NewArithmetic(OpAdd, left, right))

	for _, p := range []*Parameter{base, left, right, top} {
		if err := m.AddParameter(p); err != nil {
			t.Fatal(err)
		}
	}
	// A diamond is a DAG, not a cycle.
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if got := top.Mean(); got != 5e-3 {
		t.Errorf("top = %v, want 5e-3", got)
	}
}

func TestCCFGroupValidate(t *testing.T) {
	q := NewConstant(0.1)

	group := NewCCFGroup("pumps", BetaFactor, q)
	for _, name := range []string{"p1", "p2"} {
		if err := group.AddMember(NewBasicEvent(name, nil)); err != nil {
			t.Fatalf("AddMember(%s): %v", name, err)
		}
	}
	group.AddFactor(NewConstant(0.2))
	if err := group.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	// Factor count must match the model and group size.
	mgl := NewCCFGroup("valves", MGL, q)
	for _, name := range []string{"v1", "v2", "v3"} {
		if err := mgl.AddMember(NewBasicEvent(name, nil)); err != nil {
			t.Fatal(err)
		}
	}
	mgl.AddFactor(NewConstant(0.1))
	if err := mgl.Validate(); err == nil {
		t.Error("MGL group with too few factors must be rejected")
	}

	// Phi factors must sum to one.
	phi := NewCCFGroup("fans", PhiFactor, q)
	for _, name := range []string{"f1", "f2"} {
		if err := phi.AddMember(NewBasicEvent(name, nil)); err != nil {
			t.Fatal(err)
		}
	}
	phi.AddFactor(NewConstant(0.5))
	phi.AddFactor(NewConstant(0.3))
	if err := phi.Validate(); err == nil {
		t.Error("phi factors summing to 0.8 must be rejected")
	}
}

func TestCCFGroupMembershipExclusive(t *testing.T) {
	e := NewBasicEvent("shared", nil)
	g1 := NewCCFGroup("g1", BetaFactor, NewConstant(0.1))
	g2 := NewCCFGroup("g2", BetaFactor, NewConstant(0.1))

	if err := g1.AddMember(e); err != nil {
		t.Fatal(err)
	}
	if err := g2.AddMember(e); err == nil {
		t.Error("an event must not join two CCF groups")
	}
	if err := g1.AddMember(e); err == nil {
		t.Error("an event must not join the same group twice")
	}
}
