package quant

import (
	"math"
	"testing"
)

// probs for variables a=1, b=2, c=3.
var testProbs = []float64{0, 0.1, 0.2, 0.3}

func almost(t *testing.T, got, want, tol float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v", msg, got, want)
	}
}

func TestEvaluateSingletons(t *testing.T) {
	sets := [][]int32{{1}, {2}, {3}}
	q := Quantifier{}
	almost(t, q.Evaluate(sets, testProbs), 0.496, 1e-9, "P(a or b or c)")
}

func TestEvaluatePairs(t *testing.T) {
	sets := [][]int32{{1, 2}, {2, 3}}
	q := Quantifier{}
	almost(t, q.Evaluate(sets, testProbs), 0.074, 1e-9, "P(ab or bc)")
}

func TestEvaluateAtLeastTwo(t *testing.T) {
	sets := [][]int32{{1, 2}, {1, 3}, {2, 3}}
	q := Quantifier{}
	almost(t, q.Evaluate(sets, testProbs), 0.098, 1e-9, "P(2 of abc)")
}

func TestEvaluateXor(t *testing.T) {
	sets := [][]int32{{1, -2, -3}, {-1, 2, -3}, {-1, -2, 3}, {1, 2, 3}}
	q := Quantifier{}
	almost(t, q.Evaluate(sets, testProbs), 0.404, 1e-9, "P(xor)")
}

func TestEvaluateNegatedLiteral(t *testing.T) {
	q := Quantifier{}
	almost(t, q.Evaluate([][]int32{{1}, {-2}}, testProbs), 0.82, 1e-9, "P(a or not b)")
	almost(t, q.Evaluate([][]int32{{1, -2}}, testProbs), 0.08, 1e-9, "P(a and not b)")
}

func TestEvaluateTautologyAndEmpty(t *testing.T) {
	q := Quantifier{}
	if p := q.Evaluate([][]int32{{}}, testProbs); p != 1 {
		t.Errorf("tautology probability = %v, want 1", p)
	}
	if p := q.Evaluate(nil, testProbs); p != 0 {
		t.Errorf("empty probability = %v, want 0", p)
	}
}

func TestEvaluateRareEvent(t *testing.T) {
	sets := [][]int32{{1, 2}, {2, 3}}
	q := Quantifier{Approx: ApproxRareEvent}
	almost(t, q.Evaluate(sets, testProbs), 0.08, 1e-9, "rare-event sum")
}

func TestEvaluateMCUB(t *testing.T) {
	sets := [][]int32{{1, 2}, {2, 3}}
	q := Quantifier{Approx: ApproxMCUB}
	want := 1 - (1-0.02)*(1-0.06)
	almost(t, q.Evaluate(sets, testProbs), want, 1e-9, "mcub")
}

func TestEvaluateTruncation(t *testing.T) {
	// Truncating at depth 1 equals the rare-event sum.
	sets := [][]int32{{1, 2}, {2, 3}}
	q := Quantifier{NumSums: 1}
	almost(t, q.Evaluate(sets, testProbs), 0.08, 1e-9, "depth-1 truncation")
}

func TestEvaluateClamped(t *testing.T) {
	sets := [][]int32{{1}, {2}, {3}}
	q := Quantifier{Approx: ApproxRareEvent}
	high := []float64{0, 0.9, 0.9, 0.9}
	if p := q.Evaluate(sets, high); p != 1 {
		t.Errorf("rare-event sum should clamp to 1, got %v", p)
	}
}

func TestEvaluateSharedComplement(t *testing.T) {
	// The intersection of {a} and {~a} is impossible; the union must be
	// exactly P(a) + P(~a) = 1.
	sets := [][]int32{{1}, {-1}}
	q := Quantifier{}
	almost(t, q.Evaluate(sets, testProbs), 1, 1e-9, "P(a or not a)")
}

func TestMeasures(t *testing.T) {
	sets := [][]int32{{1, 2}, {2, 3}}
	q := Quantifier{}
	pTotal := q.Evaluate(sets, testProbs) // 0.074

	measures := q.Measures(sets, testProbs)
	if len(measures) != 3 {
		t.Fatalf("got %d measures, want 3", len(measures))
	}

	// Variable 2 (b) appears in both cut sets.
	b := measures[1]
	if b.Variable != 2 || b.Occurrences != 2 {
		t.Fatalf("unexpected record for b: %+v", b)
	}
	// With b failed: P = P(a or c) = 0.37. With b working: 0.
	almost(t, b.MIF, 0.37, 1e-9, "MIF(b)")
	almost(t, b.RAW, 0.37/pTotal, 1e-9, "RAW(b)")
	almost(t, b.FV, 1, 1e-9, "FV(b)")
	if !math.IsInf(b.RRW, 1) {
		t.Errorf("RRW(b) = %v, want +Inf (b is in every cut set)", b.RRW)
	}
	almost(t, b.CIF, 0.37*0.2/pTotal, 1e-9, "CIF(b)")
	almost(t, b.DIF, 0.2*0.37/pTotal, 1e-9, "DIF(b)")

	// Variable 1 (a) appears once.
	a := measures[0]
	if a.Variable != 1 || a.Occurrences != 1 {
		t.Fatalf("unexpected record for a: %+v", a)
	}
	// P(top|a=1) = P(b or bc) = P(b) = 0.2; P(top|a=0) = P(bc) = 0.06.
	almost(t, a.MIF, 0.14, 1e-9, "MIF(a)")
	almost(t, a.FV, 1-0.06/pTotal, 1e-9, "FV(a)")
}

func TestMeasuresUndefined(t *testing.T) {
	sets := [][]int32{{1}}
	zero := []float64{0, 0}
	q := Quantifier{}
	measures := q.Measures(sets, zero)
	if len(measures) != 1 {
		t.Fatalf("got %d measures, want 1", len(measures))
	}
	if !measures[0].Undefined {
		t.Error("measures over P(top)=0 should be undefined")
	}
	if !math.IsNaN(measures[0].RAW) {
		t.Errorf("RAW = %v, want NaN", measures[0].RAW)
	}
	// MIF stays defined: P(top|q=1) - P(top|q=0) = 1.
	almost(t, measures[0].MIF, 1, 1e-9, "MIF")
}
