package mocus

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	modelgen "github.com/dd0wney/cluso-riskgraph/pkg/generator"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/preprocess"
)

func TestCutSetInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25

	properties := gopter.NewProperties(parameters)

	analyze := func(seed uint64, events int) (*graph.Graph, *Result) {
		model, err := modelgen.Generate(modelgen.Config{
			Seed:                seed,
			NumBasicEvents:      events,
			CommonEventFraction: 0.2,
		})
		if err != nil {
			return nil, nil
		}
		tree, _ := model.FaultTree("root")
		g, err := graph.Build(tree.Top(), nil)
		if err != nil {
			return nil, nil
		}
		if err := preprocess.Run(context.Background(), g); err != nil {
			return nil, nil
		}
		res, err := Generate(context.Background(), g, Config{LimitOrder: 6})
		if err != nil {
			return nil, nil
		}
		return g, res
	}

	// Property 1: no cut set is a superset of another.
	properties.Property("cut sets are minimal", prop.ForAll(
		func(seed uint64, events int) bool {
			_, res := analyze(seed, events)
			if res == nil {
				return true
			}
			for i, s := range res.CutSets {
				for j, t := range res.CutSets {
					if i != j && isSubset(t, s) && len(t) < len(s) {
						return false
					}
					if i != j && reflect.DeepEqual(s, t) {
						return false
					}
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(2, 40),
	))

	// Property 2: every cut set respects the order limit.
	properties.Property("order limit holds", prop.ForAll(
		func(seed uint64, events int) bool {
			_, res := analyze(seed, events)
			if res == nil {
				return true
			}
			for _, cs := range res.CutSets {
				if len(cs) > 6 {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(2, 40),
	))

	// Property 3: generation is deterministic.
	properties.Property("same seed yields same cut sets", prop.ForAll(
		func(seed uint64, events int) bool {
			_, r1 := analyze(seed, events)
			_, r2 := analyze(seed, events)
			if r1 == nil || r2 == nil {
				return r1 == r2
			}
			return reflect.DeepEqual(r1.CutSets, r2.CutSets)
		},
		gen.UInt64(),
		gen.IntRange(2, 30),
	))

	properties.TestingRun(t)
}
