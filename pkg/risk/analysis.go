package risk

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-riskgraph/pkg/ccf"
	"github.com/dd0wney/cluso-riskgraph/pkg/eventtree"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
	"github.com/dd0wney/cluso-riskgraph/pkg/metrics"
	"github.com/dd0wney/cluso-riskgraph/pkg/mocus"
	"github.com/dd0wney/cluso-riskgraph/pkg/montecarlo"
	"github.com/dd0wney/cluso-riskgraph/pkg/preprocess"
	"github.com/dd0wney/cluso-riskgraph/pkg/quant"
)

// RiskAnalysis runs the full pipeline over one model.
type RiskAnalysis struct {
	model    *mef.Model
	settings Settings
	logger   logging.Logger
	registry *metrics.Registry
}

// Option customizes a RiskAnalysis.
type Option func(*RiskAnalysis)

// WithLogger replaces the default logger.
func WithLogger(l logging.Logger) Option {
	return func(ra *RiskAnalysis) { ra.logger = l }
}

// WithMetrics replaces the default metrics registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(ra *RiskAnalysis) { ra.registry = r }
}

// New validates the settings and builds an analysis over the model.
func New(model *mef.Model, settings Settings, opts ...Option) (*RiskAnalysis, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	ra := &RiskAnalysis{
		model:    model,
		settings: settings,
		logger:   logging.DefaultLogger(),
		registry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(ra)
	}
	return ra, nil
}

// EventImportance pairs a basic event with its importance measures.
type EventImportance struct {
	Event string
	quant.Importance
}

// Result holds the outcome for one analysis target.
type Result struct {
	// Target is the fault tree name or "initiating.sequence".
	Target string

	// Products are the minimal cut sets as signed variable indices.
	// Positive literal v is Variables[v-1]; negative -v is its
	// complement.
	Products [][]int32

	// Variables maps variable index minus one to the basic event name.
	Variables []string

	// CutSets are Products rendered with event names; negated literals
	// carry a "not " prefix.
	CutSets [][]string

	// Distribution counts cut sets by order.
	Distribution []int

	Probability      float64
	ProbabilityValid bool

	Importance  []EventImportance
	Uncertainty *montecarlo.Result
}

// Report is the outcome of one Run.
type Report struct {
	ID       string
	Model    string
	Seed     uint64
	Results  []*Result
	Elapsed  time.Duration
	Settings Settings
}

// Run executes every analysis target of the model.
func (ra *RiskAnalysis) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	if ra.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ra.settings.Timeout)
		defer cancel()
	}

	if err := ra.model.Validate(); err != nil {
		return nil, WrapError(KindValidation, "model", err)
	}
	if ra.settings.MissionTime > 0 {
		ra.model.MissionTime().SetValue(ra.settings.MissionTime)
	}

	seed := ra.settings.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	subs, err := ra.expandCCF()
	if err != nil {
		return nil, WrapError(KindValidation, "ccf", err)
	}

	report := &Report{
		ID:       uuid.NewString(),
		Model:    ra.model.ID(),
		Seed:     seed,
		Settings: ra.settings,
	}

	targets, err := ra.targets()
	if err != nil {
		return nil, WrapError(KindValidation, "event-tree", err)
	}
	for _, target := range targets {
		res, err := ra.analyzeTarget(ctx, target, subs, seed)
		if err != nil {
			return nil, WrapError(KindInternal, target.name, err)
		}
		report.Results = append(report.Results, res)
	}

	report.Elapsed = time.Since(start)
	ra.logger.Info("analysis complete",
		logging.String("report_id", report.ID),
		logging.Count(len(report.Results)),
		logging.Latency(report.Elapsed))
	return report, nil
}

type target struct {
	name string
	top  *mef.Gate // nil for an unconditional event-tree sequence
}

// targets enumerates fault-tree tops and event-tree sequences in
// deterministic name order.
func (ra *RiskAnalysis) targets() ([]target, error) {
	var out []target

	names := make([]string, 0, len(ra.model.FaultTrees()))
	for name := range ra.model.FaultTrees() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ft, _ := ra.model.FaultTree(name)
		out = append(out, target{name: name, top: ft.Top()})
	}

	initNames := make([]string, 0, len(ra.model.InitiatingEvents()))
	for name := range ra.model.InitiatingEvents() {
		initNames = append(initNames, name)
	}
	sort.Strings(initNames)
	for _, name := range initNames {
		ie := ra.model.InitiatingEvents()[name]
		tops, err := eventtree.Walk(ie)
		if err != nil {
			return nil, err
		}
		for _, st := range tops {
			out = append(out, target{
				name: ie.ID() + "." + st.Sequence.ID(),
				top:  st.Top,
			})
		}
	}
	return out, nil
}

// expandCCF substitutes common-cause group members when enabled.
func (ra *RiskAnalysis) expandCCF() (map[string]mef.Node, error) {
	if !ra.settings.CCF || len(ra.model.CCFGroups()) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(ra.model.CCFGroups()))
	for name := range ra.model.CCFGroups() {
		names = append(names, name)
	}
	sort.Strings(names)
	groups := make([]*mef.CCFGroup, 0, len(names))
	for _, name := range names {
		g, _ := ra.model.CCFGroup(name)
		groups = append(groups, g)
	}
	exp, err := ccf.ExpandAll(groups)
	if err != nil {
		return nil, err
	}
	ra.logger.Debug("ccf groups expanded",
		logging.Count(len(groups)),
		logging.EventCount(len(exp.Events)))
	return exp.Subs, nil
}

func (ra *RiskAnalysis) analyzeTarget(ctx context.Context, t target, subs map[string]mef.Node, seed uint64) (*Result, error) {
	log := ra.logger.With(logging.Target(t.name))
	res := &Result{Target: t.name}

	if t.top == nil {
		// Unconditional sequence: always reached.
		res.Products = [][]int32{{}}
		res.CutSets = [][]string{{}}
		res.Distribution = []int{1}
		if ra.settings.Probability {
			res.Probability, res.ProbabilityValid = 1, true
		}
		return res, nil
	}

	g, err := graph.Build(t.top, subs)
	if err != nil {
		return nil, WrapError(KindLogic, "build", err)
	}

	gatesBefore := g.GateCount()
	preStart := time.Now()
	timer := logging.StartTimer(log, "preprocessing done", logging.GateCount(gatesBefore))
	if err := preprocess.Run(ctx, g); err != nil {
		ra.registry.RecordPreprocessing("error", time.Since(preStart), gatesBefore, g.GateCount(), 0)
		return nil, WrapError(KindInternal, "preprocess", err)
	}
	modules := 0
	for _, node := range g.Gates() {
		if node.Module {
			modules++
		}
	}
	ra.registry.RecordPreprocessing("success", time.Since(preStart), gatesBefore, g.GateCount(), modules)
	timer.EndWithLevel(logging.DebugLevel, "preprocessing done")

	cfg := mocus.Config{
		LimitOrder:    ra.settings.LimitOrder,
		CutOff:        ra.settings.CutOff,
		MaxCandidates: ra.settings.MaxCandidates,
	}
	if ra.settings.Probability {
		cfg.Probability = func(v int32) float64 { return g.Variable(v).Mean() }
	}
	mcsStart := time.Now()
	mcs, err := mocus.Generate(ctx, g, cfg)
	if err != nil {
		ra.registry.RecordCutSetRun("error", time.Since(mcsStart), 0, 0, 0)
		if errors.Is(err, mocus.ErrWorkingSetExhausted) {
			return nil, WrapError(KindResource, "mocus", err)
		}
		return nil, WrapError(KindInternal, "mocus", err)
	}
	res.Distribution = mcs.Distribution()
	res.Products = mcs.CutSets
	res.Variables = variableNames(g)
	res.CutSets = renderCutSets(g, mcs.CutSets)
	largest := len(res.Distribution) - 1
	ra.registry.RecordCutSetRun("success", time.Since(mcsStart), len(mcs.CutSets), largest, mcs.Truncated)
	log.Info("cut sets generated", logging.CutSetCount(len(mcs.CutSets)))

	if !ra.settings.Probability {
		return res, nil
	}

	probs := meanProbabilities(g)
	quantifier := ra.settings.quantifier()

	qStart := time.Now()
	res.Probability = quantifier.Evaluate(mcs.CutSets, probs)
	res.ProbabilityValid = true
	ra.registry.RecordQuantification(quantifier.Approx.String(), t.name, time.Since(qStart), res.Probability)
	log.Info("probability quantified", logging.Probability(res.Probability))

	if ra.settings.Importance {
		for _, imp := range quantifier.Measures(mcs.CutSets, probs) {
			res.Importance = append(res.Importance, EventImportance{
				Event:      g.Variable(imp.Variable).ID(),
				Importance: imp,
			})
		}
	}

	if ra.settings.Uncertainty {
		events := make([]*mef.BasicEvent, g.VarCount())
		for i := range events {
			events[i] = g.Variable(int32(i) + 1)
		}
		uStart := time.Now()
		mc := montecarlo.Config{
			NumTrials:  ra.settings.NumTrials,
			Seed:       seed,
			Workers:    ra.settings.Workers,
			Quantifier: quantifier,
		}
		unc, err := mc.Analyze(ctx, mcs.CutSets, events)
		if err != nil {
			return nil, WrapError(KindInternal, "uncertainty", err)
		}
		res.Uncertainty = unc
		ra.registry.RecordUncertainty(time.Since(uStart), unc.NumTrials)
		log.Info("uncertainty sampled", logging.Trials(unc.NumTrials))
	}
	return res, nil
}

// meanProbabilities collects point probabilities indexed by variable.
func meanProbabilities(g *graph.Graph) []float64 {
	probs := make([]float64, g.VarCount()+1)
	for i := 1; i <= g.VarCount(); i++ {
		probs[i] = g.Variable(int32(i)).Mean()
	}
	return probs
}

// variableNames collects event names indexed by variable minus one.
func variableNames(g *graph.Graph) []string {
	names := make([]string, g.VarCount())
	for i := range names {
		names[i] = g.Variable(int32(i) + 1).ID()
	}
	return names
}

// renderCutSets maps literal indices back to event names.
func renderCutSets(g *graph.Graph, sets [][]int32) [][]string {
	out := make([][]string, len(sets))
	for i, cs := range sets {
		names := make([]string, len(cs))
		for j, lit := range cs {
			if lit < 0 {
				names[j] = "not " + g.Variable(-lit).ID()
			} else {
				names[j] = g.Variable(lit).ID()
			}
		}
		out[i] = names
	}
	return out
}
