package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-riskgraph/pkg/generator"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/quant"
)

// abcModel is the three-event disjunction used across the suite:
// top = a OR b OR c with probabilities 0.1, 0.2, 0.3.
func abcModel(t *testing.T) *mef.Model {
	t.Helper()
	m := mef.NewModel("abc")

	a := mef.NewBasicEvent("a", mef.NewConstant(0.1))
	b := mef.NewBasicEvent("b", mef.NewConstant(0.2))
	c := mef.NewBasicEvent("c", mef.NewConstant(0.3))
	for _, e := range []*mef.BasicEvent{a, b, c} {
		require.NoError(t, m.AddBasicEvent(e))
	}

	top := mef.NewGate("top", mef.Or).AddArg(a).AddArg(b).AddArg(c)
	ft := mef.NewFaultTree("disjunction")
	require.NoError(t, ft.AddGate(top))
	require.NoError(t, m.AddFaultTree(ft))
	return m
}

// threeTrainModel builds a three-train system where each train fails
// when its pump or its valve fails. Pumps and valves each form a
// beta-factor group with Q = 0.1 and beta = 0.2.
func threeTrainModel(t *testing.T) *mef.Model {
	t.Helper()
	m := mef.NewModel("three-train")

	pumps := mef.NewCCFGroup("pumps", mef.BetaFactor, mef.NewConstant(0.1))
	pumps.AddFactor(mef.NewConstant(0.2))
	valves := mef.NewCCFGroup("valves", mef.BetaFactor, mef.NewConstant(0.1))
	valves.AddFactor(mef.NewConstant(0.2))

	ft := mef.NewFaultTree("system")
	top := mef.NewGate("top", mef.And)
	require.NoError(t, ft.AddGate(top))

	for _, train := range []string{"one", "two", "three"} {
		pump := mef.NewBasicEvent("pump_"+train, mef.NewConstant(0.1))
		valve := mef.NewBasicEvent("valve_"+train, mef.NewConstant(0.1))
		require.NoError(t, m.AddBasicEvent(pump))
		require.NoError(t, m.AddBasicEvent(valve))
		require.NoError(t, pumps.AddMember(pump))
		require.NoError(t, valves.AddMember(valve))

		gate := mef.NewGate("train_"+train, mef.Or).AddArg(pump).AddArg(valve)
		require.NoError(t, ft.AddGate(gate))
		top.AddArg(gate)
	}

	require.NoError(t, m.AddCCFGroup(pumps))
	require.NoError(t, m.AddCCFGroup(valves))
	require.NoError(t, m.AddFaultTree(ft))
	return m
}

func newAnalysis(t *testing.T, m *mef.Model, s Settings) *RiskAnalysis {
	t.Helper()
	ra, err := New(m, s, WithLogger(logging.NewNopLogger()), WithMetrics(metrics.NewRegistry()))
	require.NoError(t, err)
	return ra
}

func TestRunDisjunction(t *testing.T) {
	s := DefaultSettings()
	s.Probability = true

	report, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, "disjunction", res.Target)
	assert.ElementsMatch(t, [][]string{{"a"}, {"b"}, {"c"}}, res.CutSets)
	assert.Equal(t, []int{0, 3}, res.Distribution)
	require.True(t, res.ProbabilityValid)
	assert.InDelta(t, 0.496, res.Probability, 1e-9)

	// The signed-index products render to the same names.
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Variables)
	require.Len(t, res.Products, len(res.CutSets))
	for i, prod := range res.Products {
		require.Len(t, prod, len(res.CutSets[i]))
		for j, lit := range prod {
			require.Positive(t, lit)
			assert.Equal(t, res.CutSets[i][j], res.Variables[lit-1])
		}
	}

	assert.NotEmpty(t, report.ID)
	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, "abc", report.Model)
}

func TestRunComplementaryLiterals(t *testing.T) {
	// A gate may hold an event and its negation side by side; the
	// pipeline collapses the pair instead of the model rejecting it.
	m := mef.NewModel("complement")
	a := mef.NewBasicEvent("a", mef.NewConstant(0.1))
	require.NoError(t, m.AddBasicEvent(a))

	taut := mef.NewFaultTree("taut")
	require.NoError(t, taut.AddGate(mef.NewGate("taut_top", mef.Or).AddArg(a).AddNegArg(a)))
	require.NoError(t, m.AddFaultTree(taut))

	contra := mef.NewFaultTree("contra")
	require.NoError(t, contra.AddGate(mef.NewGate("contra_top", mef.And).AddArg(a).AddNegArg(a)))
	require.NoError(t, m.AddFaultTree(contra))

	s := DefaultSettings()
	s.Probability = true
	report, err := newAnalysis(t, m, s).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	byTarget := map[string]*Result{}
	for _, res := range report.Results {
		byTarget[res.Target] = res
	}

	assert.Empty(t, byTarget["contra"].CutSets)
	assert.Empty(t, byTarget["contra"].Products)
	assert.Equal(t, 0.0, byTarget["contra"].Probability)

	assert.Equal(t, [][]string{{}}, byTarget["taut"].CutSets)
	assert.Equal(t, [][]int32{{}}, byTarget["taut"].Products)
	assert.Equal(t, 1.0, byTarget["taut"].Probability)
}

func TestRunApproximations(t *testing.T) {
	for _, tt := range []struct {
		approx quant.Approximation
		want   float64
	}{
		{quant.ApproxNone, 0.496},
		{quant.ApproxRareEvent, 0.6},
		{quant.ApproxMCUB, 1 - 0.9*0.8*0.7},
	} {
		s := DefaultSettings()
		s.Probability = true
		s.Approximation = tt.approx

		report, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, tt.want, report.Results[0].Probability, 1e-9, tt.approx.String())
	}
}

func TestRunCommonCauseExpansion(t *testing.T) {
	s := DefaultSettings()
	s.Probability = true
	s.CCF = true

	report, err := newAnalysis(t, threeTrainModel(t), s).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	require.True(t, res.ProbabilityValid)
	assert.InDelta(t, 0.0430804, res.Probability, 1e-5)
	assert.Len(t, res.CutSets, 10)

	// The full common-cause failures are first-order cut sets.
	var sawPumps, sawValves bool
	for _, cs := range res.CutSets {
		if len(cs) == 1 && cs[0] == "[pump_one pump_three pump_two]" {
			sawPumps = true
		}
		if len(cs) == 1 && cs[0] == "[valve_one valve_three valve_two]" {
			sawValves = true
		}
	}
	assert.True(t, sawPumps, "missing pump common-cause cut set")
	assert.True(t, sawValves, "missing valve common-cause cut set")
}

func TestRunCommonCauseDisabled(t *testing.T) {
	s := DefaultSettings()
	s.Probability = true

	report, err := newAnalysis(t, threeTrainModel(t), s).Run(context.Background())
	require.NoError(t, err)

	// Without expansion the trains are independent:
	// P = (1 - 0.9 * 0.9)^3.
	want := math.Pow(1-0.9*0.9, 3)
	assert.InDelta(t, want, report.Results[0].Probability, 1e-9)
}

func TestRunImportance(t *testing.T) {
	s := DefaultSettings()
	s.Probability = true
	s.Importance = true

	report, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
	require.NoError(t, err)

	res := report.Results[0]
	require.Len(t, res.Importance, 3)

	byEvent := make(map[string]EventImportance, 3)
	for _, imp := range res.Importance {
		byEvent[imp.Event] = imp
	}
	a := byEvent["a"]
	require.NotZero(t, a.Event)
	assert.Equal(t, 1, a.Occurrences)
	// With b and c unchanged: P1 = 1 - 0.8*0.7*0 offset by a pinned to
	// one or zero. P0 = 1 - 0.8*0.7 = 0.44, P1 = 1.
	assert.InDelta(t, 0.56, a.MIF, 1e-9)
	assert.InDelta(t, 1-0.44/0.496, a.FV, 1e-9)
	assert.False(t, a.Undefined)
}

func TestRunUncertainty(t *testing.T) {
	s := DefaultSettings()
	s.Probability = true
	s.Uncertainty = true
	s.NumTrials = 500
	s.Seed = 1234

	run := func() *Report {
		report, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
		require.NoError(t, err)
		return report
	}

	r1 := run()
	unc := r1.Results[0].Uncertainty
	require.NotNil(t, unc)
	assert.Equal(t, 500, unc.NumTrials)
	assert.Equal(t, uint64(1234), r1.Seed)

	// Point probabilities are constants, so every trial agrees.
	assert.InDelta(t, 0.496, unc.Mean, 1e-9)
	assert.Zero(t, unc.StdDev)

	r2 := run()
	assert.Equal(t, unc.Mean, r2.Results[0].Uncertainty.Mean)
	assert.Equal(t, unc.P95, r2.Results[0].Uncertainty.P95)
}

func TestRunEventTreeSequences(t *testing.T) {
	m := abcModel(t)

	cooling, ok := m.Gate("top")
	require.True(t, ok)

	et := mef.NewEventTree("loss-of-power")
	okSeq := mef.NewSequence("ok")
	damage := mef.NewSequence("damage")
	require.NoError(t, et.AddSequence(okSeq))
	require.NoError(t, et.AddSequence(damage))
	et.SetInitialState(&mef.Fork{
		FunctionalEvent: "cooling",
		Paths: []mef.Path{
			{State: mef.Success, Target: okSeq},
			{State: mef.Failure, Collect: &mef.Arg{Node: cooling}, Target: damage},
		},
	})
	require.NoError(t, m.AddEventTree(et))
	require.NoError(t, m.AddInitiatingEvent(mef.NewInitiatingEvent("lop", et)))

	s := DefaultSettings()
	s.Probability = true

	report, err := newAnalysis(t, m, s).Run(context.Background())
	require.NoError(t, err)

	byTarget := make(map[string]*Result)
	for _, res := range report.Results {
		byTarget[res.Target] = res
	}
	require.Contains(t, byTarget, "disjunction")
	require.Contains(t, byTarget, "lop.ok")
	require.Contains(t, byTarget, "lop.damage")

	// The success sequence collects nothing and is unconditional.
	assert.Equal(t, [][]string{{}}, byTarget["lop.ok"].CutSets)
	assert.InDelta(t, 1.0, byTarget["lop.ok"].Probability, 1e-9)

	// The damage sequence inherits the cooling fault tree.
	assert.InDelta(t, 0.496, byTarget["lop.damage"].Probability, 1e-9)
}

func TestNewRejectsBadSettings(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero limit order", func(s *Settings) { s.LimitOrder = 0 }},
		{"cut-off at one", func(s *Settings) { s.CutOff = 1 }},
		{"negative trials", func(s *Settings) { s.NumTrials = -1 }},
		{"negative timeout", func(s *Settings) { s.Timeout = -time.Second }},
		{"negative working-set bound", func(s *Settings) { s.MaxCandidates = -1 }},
		{"importance without probability", func(s *Settings) { s.Importance = true }},
		{"uncertainty without probability", func(s *Settings) { s.Uncertainty = true }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			_, err := New(abcModel(t), s)
			require.Error(t, err)
			assert.Equal(t, KindSettings, KindOf(err))
			assert.Equal(t, 1, KindOf(err).ExitCode())
		})
	}
}

func TestRunInvalidModel(t *testing.T) {
	m := mef.NewModel("broken")
	require.NoError(t, m.AddBasicEvent(mef.NewBasicEvent("a", mef.NewConstant(2))))

	s := DefaultSettings()
	_, err := newAnalysis(t, m, s).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 1, KindOf(err).ExitCode())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := DefaultSettings()
	_, err := newAnalysis(t, abcModel(t), s).Run(ctx)
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
	assert.Equal(t, 4, KindOf(err).ExitCode())
}

func TestRunGeneratedTreeRegression(t *testing.T) {
	run := func() *Result {
		model, err := generator.Generate(generator.Config{
			Seed:                200,
			NumBasicEvents:      200,
			CommonEventFraction: 0.1,
		})
		require.NoError(t, err)

		s := DefaultSettings()
		s.Probability = true
		s.LimitOrder = 5
		s.NumSums = 3

		report, err := newAnalysis(t, model, s).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
		return report.Results[0]
	}

	res := run()
	require.True(t, res.ProbabilityValid)
	assert.GreaterOrEqual(t, res.Probability, 0.0)
	assert.LessOrEqual(t, res.Probability, 1.0)
	for _, cs := range res.CutSets {
		assert.LessOrEqual(t, len(cs), 5)
	}

	// Same seed, same outcome.
	again := run()
	assert.Equal(t, res.CutSets, again.CutSets)
	assert.Equal(t, res.Probability, again.Probability)
}

func TestRunWorkingSetBound(t *testing.T) {
	s := DefaultSettings()
	s.MaxCandidates = 1

	// The top disjunction fans out to three candidates at once, which
	// exceeds a bound of one immediately.
	_, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindResource, KindOf(err))
	assert.Equal(t, 3, KindOf(err).ExitCode())
}

func TestRunTimeout(t *testing.T) {
	s := DefaultSettings()
	s.Timeout = time.Nanosecond

	_, err := newAnalysis(t, abcModel(t), s).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindCancelled, KindOf(err))
}

func TestRunLimitOrderTruncation(t *testing.T) {
	m := mef.NewModel("pairs")
	a := mef.NewBasicEvent("a", mef.NewConstant(0.1))
	b := mef.NewBasicEvent("b", mef.NewConstant(0.2))
	c := mef.NewBasicEvent("c", mef.NewConstant(0.3))
	for _, e := range []*mef.BasicEvent{a, b, c} {
		require.NoError(t, m.AddBasicEvent(e))
	}

	ab := mef.NewGate("ab", mef.And).AddArg(a).AddArg(b)
	abc := mef.NewGate("abc", mef.And).AddArg(a).AddArg(b).AddArg(c)

	// Build distinct trees so the shared pair survives minimization.
	ft := mef.NewFaultTree("mixed")
	top := mef.NewGate("top", mef.Or).AddArg(ab).AddArg(abc)
	require.NoError(t, ft.AddGate(top))
	require.NoError(t, ft.AddGate(ab))
	require.NoError(t, ft.AddGate(abc))
	require.NoError(t, m.AddFaultTree(ft))

	s := DefaultSettings()
	s.LimitOrder = 1

	report, err := newAnalysis(t, m, s).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Results[0].CutSets)
}
