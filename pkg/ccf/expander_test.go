package ccf

import (
	"math"
	"testing"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
)

func almost(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v", msg, got, want)
	}
}

func newGroup(t *testing.T, model mef.CCFModel, q float64, members []string, factors ...float64) *mef.CCFGroup {
	t.Helper()
	g := mef.NewCCFGroup("group", model, mef.NewConstant(q))
	for _, m := range members {
		if err := g.AddMember(mef.NewBasicEvent(m, nil)); err != nil {
			t.Fatalf("AddMember(%s): %v", m, err)
		}
	}
	for _, f := range factors {
		g.AddFactor(mef.NewConstant(f))
	}
	return g
}

func TestExpandBetaFactor(t *testing.T) {
	g := newGroup(t, mef.BetaFactor, 0.1, []string{"pump_one", "pump_two"}, 0.2)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	byName := make(map[string]*mef.BasicEvent)
	for _, ev := range exp.Events {
		byName[ev.ID()] = ev
	}
	if len(byName) != 3 {
		t.Fatalf("got %d synthetic events, want 3: %v", len(byName), byName)
	}

	almost(t, byName["[pump_one]"].Mean(), 0.08, 1e-12, "independent part")
	almost(t, byName["[pump_two]"].Mean(), 0.08, 1e-12, "independent part")
	almost(t, byName["[pump_one pump_two]"].Mean(), 0.02, 1e-12, "common part")

	sub, ok := exp.Subs["pump_one"].(*mef.Gate)
	if !ok {
		t.Fatal("substitute for pump_one is not a gate")
	}
	if sub.Connective() != mef.Or || len(sub.Args()) != 2 {
		t.Errorf("substitute should be OR over 2 events, got %s/%d", sub.Connective(), len(sub.Args()))
	}
}

func TestExpandBetaFactorThreeMembers(t *testing.T) {
	g := newGroup(t, mef.BetaFactor, 0.1, []string{"a", "b", "c"}, 0.2)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	// Beta factor skips intermediate multiplicities: three singles and
	// one triple.
	if len(exp.Events) != 4 {
		t.Fatalf("got %d synthetic events, want 4", len(exp.Events))
	}
	for _, ev := range exp.Events {
		switch ev.ID() {
		case "[a]", "[b]", "[c]":
			almost(t, ev.Mean(), 0.08, 1e-12, ev.ID())
		case "[a b c]":
			almost(t, ev.Mean(), 0.02, 1e-12, ev.ID())
		default:
			t.Errorf("unexpected synthetic event %q", ev.ID())
		}
	}
}

func TestExpandMGL(t *testing.T) {
	// n=3 with beta=0.1, gamma=0.2.
	g := newGroup(t, mef.MGL, 0.1, []string{"a", "b", "c"}, 0.1, 0.2)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	byName := make(map[string]*mef.BasicEvent)
	for _, ev := range exp.Events {
		byName[ev.ID()] = ev
	}

	q := 0.1
	// Q1 = (1-beta) * Q; Q2 = beta*(1-gamma)*Q / C(2,1); Q3 = beta*gamma*Q.
	almost(t, byName["[a]"].Mean(), 0.9*q, 1e-12, "Q1")
	almost(t, byName["[a b]"].Mean(), 0.1*0.8*q/2, 1e-12, "Q2")
	almost(t, byName["[a b c]"].Mean(), 0.1*0.2*q, 1e-12, "Q3")
}

func TestExpandAlphaFactor(t *testing.T) {
	// n=3 with alpha1=0.95, alpha2=0.03, alpha3=0.02.
	g := newGroup(t, mef.AlphaFactor, 0.1, []string{"a", "b", "c"}, 0.95, 0.03, 0.02)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	byName := make(map[string]*mef.BasicEvent)
	for _, ev := range exp.Events {
		byName[ev.ID()] = ev
	}

	q := 0.1
	alphaT := 1*0.95 + 2*0.03 + 3*0.02
	almost(t, byName["[a]"].Mean(), 1*0.95/alphaT*q, 1e-12, "Q1")
	almost(t, byName["[a b]"].Mean(), 2.0/2*0.03/alphaT*q, 1e-12, "Q2")
	almost(t, byName["[a b c]"].Mean(), 3*0.02/alphaT*q, 1e-12, "Q3")
}

func TestExpandPhiFactor(t *testing.T) {
	g := newGroup(t, mef.PhiFactor, 0.2, []string{"a", "b"}, 0.7, 0.3)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	byName := make(map[string]*mef.BasicEvent)
	for _, ev := range exp.Events {
		byName[ev.ID()] = ev
	}

	almost(t, byName["[a]"].Mean(), 0.7*0.2, 1e-12, "Q1")
	almost(t, byName["[a b]"].Mean(), 0.3*0.2, 1e-12, "Q2")
}

func TestExpandNamesSorted(t *testing.T) {
	g := newGroup(t, mef.PhiFactor, 0.2, []string{"zulu", "alpha"}, 0.7, 0.3)

	exp, err := Expand(g)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, ev := range exp.Events {
		if ev.ID() == "[zulu alpha]" {
			t.Error("composite names must sort their members")
		}
	}
	found := false
	for _, ev := range exp.Events {
		if ev.ID() == "[alpha zulu]" {
			found = true
		}
	}
	if !found {
		t.Error("expected composite event [alpha zulu]")
	}
}

func TestExpandRejectsInvalidGroup(t *testing.T) {
	g := mef.NewCCFGroup("tiny", mef.BetaFactor, mef.NewConstant(0.1))
	g.AddMember(mef.NewBasicEvent("only", nil))
	g.AddFactor(mef.NewConstant(0.2))
	if _, err := Expand(g); err == nil {
		t.Error("single-member group must be rejected")
	}
}

func TestExpandAllMergesGroups(t *testing.T) {
	g1 := newGroup(t, mef.BetaFactor, 0.1, []string{"p1", "p2"}, 0.2)
	g2 := mef.NewCCFGroup("valves", mef.BetaFactor, mef.NewConstant(0.1))
	for _, m := range []string{"v1", "v2"} {
		if err := g2.AddMember(mef.NewBasicEvent(m, nil)); err != nil {
			t.Fatalf("AddMember: %v", err)
		}
	}
	g2.AddFactor(mef.NewConstant(0.2))

	exp, err := ExpandAll([]*mef.CCFGroup{g1, g2})
	if err != nil {
		t.Fatalf("ExpandAll: %v", err)
	}
	if len(exp.Events) != 6 {
		t.Errorf("got %d events, want 6", len(exp.Events))
	}
	for _, member := range []string{"p1", "p2", "v1", "v2"} {
		if _, ok := exp.Subs[member]; !ok {
			t.Errorf("missing substitution for %s", member)
		}
	}
}
