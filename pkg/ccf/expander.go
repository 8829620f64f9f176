// Package ccf expands common-cause groups into synthetic basic events.
// Every member of a group is substituted by an OR over the failure
// combinations that include it, so the downstream cut-set and
// quantification machinery never sees the group itself.
package ccf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
)

// Expansion is the outcome for one or more groups.
type Expansion struct {
	// Events lists every synthetic basic event created, in a
	// deterministic order.
	Events []*mef.BasicEvent

	// Subs maps a member event identifier to its substitute OR gate.
	Subs map[string]mef.Node
}

// ExpandAll expands every group and merges the substitution maps.
func ExpandAll(groups []*mef.CCFGroup) (*Expansion, error) {
	out := &Expansion{Subs: make(map[string]mef.Node)}
	for _, g := range groups {
		exp, err := Expand(g)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, exp.Events...)
		for id, sub := range exp.Subs {
			out.Subs[id] = sub
		}
	}
	return out, nil
}

// Expand builds the synthetic events and member substitutions for one
// validated group.
func Expand(group *mef.CCFGroup) (*Expansion, error) {
	if err := group.Validate(); err != nil {
		return nil, err
	}
	members := append([]*mef.BasicEvent(nil), group.Members()...)
	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })
	n := len(members)

	levels, err := levelProbabilities(group, n)
	if err != nil {
		return nil, err
	}

	exp := &Expansion{Subs: make(map[string]mef.Node, n)}
	perMember := make(map[string][]*mef.BasicEvent, n)

	for k := 1; k <= n; k++ {
		prob := levels[k]
		if prob == nil {
			continue // level impossible under this model
		}
		forEachCombination(n, k, func(picked []int) {
			names := make([]string, 0, k)
			for _, i := range picked {
				names = append(names, members[i].ID())
			}
			ev := mef.NewBasicEvent("["+strings.Join(names, " ")+"]", prob)
			exp.Events = append(exp.Events, ev)
			for _, i := range picked {
				id := members[i].ID()
				perMember[id] = append(perMember[id], ev)
			}
		})
	}

	for _, m := range members {
		gate := mef.NewGate(m.ID(), mef.Or)
		for _, ev := range perMember[m.ID()] {
			gate.AddArg(ev)
		}
		exp.Subs[m.ID()] = gate
	}
	return exp, nil
}

// levelProbabilities returns, per failure multiplicity k, the
// probability expression of one specific combination of k members.
// A nil entry means no event of that multiplicity exists. The
// expressions reference the group's Q and factor expressions directly,
// so uncertainty sampling propagates through them.
func levelProbabilities(group *mef.CCFGroup, n int) ([]mef.Expression, error) {
	q := group.Q()
	factors := group.Factors()
	levels := make([]mef.Expression, n+1)

	switch group.Model() {
	case mef.BetaFactor:
		beta := factors[0]
		// Independent part and total failure only.
		levels[1] = mef.NewArithmetic(mef.OpMul,
			mef.NewArithmetic(mef.OpSub, mef.NewConstant(1), beta), q)
		levels[n] = mef.NewArithmetic(mef.OpMul, beta, q)

	case mef.MGL:
		// factors[k-2] is the level-k factor (beta, gamma, ...).
		for k := 1; k <= n; k++ {
			args := []mef.Expression{mef.NewConstant(1 / choose(n-1, k-1))}
			for i := 2; i <= k; i++ {
				args = append(args, factors[i-2])
			}
			if k < n {
				args = append(args, mef.NewArithmetic(mef.OpSub, mef.NewConstant(1), factors[k-1]))
			}
			args = append(args, q)
			levels[k] = mef.NewArithmetic(mef.OpMul, args...)
		}

	case mef.AlphaFactor:
		// alphaTotal = sum over k of k * alpha_k.
		terms := make([]mef.Expression, 0, n)
		for k := 1; k <= n; k++ {
			terms = append(terms, mef.NewArithmetic(mef.OpMul, mef.NewConstant(float64(k)), factors[k-1]))
		}
		alphaTotal := mef.NewArithmetic(mef.OpAdd, terms...)
		for k := 1; k <= n; k++ {
			levels[k] = mef.NewArithmetic(mef.OpMul,
				mef.NewConstant(float64(k)/choose(n-1, k-1)),
				mef.NewArithmetic(mef.OpDiv, factors[k-1], alphaTotal),
				q)
		}

	case mef.PhiFactor:
		for k := 1; k <= n; k++ {
			levels[k] = mef.NewArithmetic(mef.OpMul, factors[k-1], q)
		}

	default:
		return nil, fmt.Errorf("CCF group %q: unsupported model %s", group.ID(), group.Model())
	}
	return levels, nil
}

func choose(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	c := 1.0
	for i := 0; i < k; i++ {
		c = c * float64(n-i) / float64(i+1)
	}
	return c
}

func forEachCombination(n, k int, fn func(picked []int)) {
	picked := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(picked) == k {
			fn(picked)
			return
		}
		for i := start; i <= n-(k-len(picked)); i++ {
			picked = append(picked, i)
			rec(i + 1)
			picked = picked[:len(picked)-1]
		}
	}
	rec(0)
}
