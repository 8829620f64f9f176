package mef

import (
	"fmt"
	"math"
)

// UniformSource is the only randomness primitive expressions depend on.
// All distribution sampling is built from uniform draws in [0, 1).
type UniformSource interface {
	Float64() float64
}

// SampleContext carries the random source for one Monte Carlo trial.
// Parameter draws are cached so that a parameter shared by several
// basic events is sampled once per trial.
type SampleContext struct {
	RNG   UniformSource
	cache map[*Parameter]float64
}

// NewSampleContext creates a sampling context backed by the given source.
func NewSampleContext(rng UniformSource) *SampleContext {
	return &SampleContext{
		RNG:   rng,
		cache: make(map[*Parameter]float64),
	}
}

// Reset clears cached parameter draws for the next trial.
func (sc *SampleContext) Reset() {
	for k := range sc.cache {
		delete(sc.cache, k)
	}
}

// Expression is a node of an arithmetic/distribution tree.
// Mean returns the point value with every distribution at its mean.
// Sample returns one Monte Carlo draw.
type Expression interface {
	Mean() float64
	Sample(ctx *SampleContext) float64
	// Deterministic reports whether the expression has no random leaves
	Deterministic() bool
	// Validate checks the expression's own argument domain
	Validate() error
}

// Constant is a fixed scalar value.
type Constant struct {
	Value float64
}

func NewConstant(v float64) *Constant { return &Constant{Value: v} }

func (c *Constant) Mean() float64                   { return c.Value }
func (c *Constant) Sample(_ *SampleContext) float64 { return c.Value }
func (c *Constant) Deterministic() bool             { return true }
func (c *Constant) Validate() error {
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("constant value is not finite")
	}
	return nil
}

// Parameter is a named expression reused across the model.
// Parameters form a DAG; cycles are rejected at model validation.
type Parameter struct {
	Name string
	Expr Expression

	// Unit is informational only (hours, per-hour, etc.)
	Unit string
}

func NewParameter(name string, expr Expression) *Parameter {
	return &Parameter{Name: name, Expr: expr}
}

func (p *Parameter) Mean() float64 { return p.Expr.Mean() }

func (p *Parameter) Sample(ctx *SampleContext) float64 {
	if v, ok := ctx.cache[p]; ok {
		return v
	}
	v := p.Expr.Sample(ctx)
	ctx.cache[p] = v
	return v
}

func (p *Parameter) Deterministic() bool { return p.Expr.Deterministic() }

func (p *Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter without a name")
	}
	if p.Expr == nil {
		return fmt.Errorf("parameter %q has no expression", p.Name)
	}
	return p.Expr.Validate()
}

// MissionTime is the system mission time shared by the whole model.
// Its value is frozen from the analysis settings before any evaluation.
type MissionTime struct {
	value float64
}

func NewMissionTime(hours float64) *MissionTime { return &MissionTime{value: hours} }

func (m *MissionTime) SetValue(hours float64)          { m.value = hours }
func (m *MissionTime) Mean() float64                   { return m.value }
func (m *MissionTime) Sample(_ *SampleContext) float64 { return m.value }
func (m *MissionTime) Deterministic() bool             { return true }
func (m *MissionTime) Validate() error {
	if m.value < 0 {
		return fmt.Errorf("mission time is negative: %f", m.value)
	}
	return nil
}

// Exponential converts a failure rate into a probability
// over the mission time: p = 1 - exp(-lambda * t).
type Exponential struct {
	Lambda Expression
	Time   Expression
}

func NewExponential(lambda, t Expression) *Exponential {
	return &Exponential{Lambda: lambda, Time: t}
}

func (e *Exponential) Mean() float64 {
	return 1 - math.Exp(-e.Lambda.Mean()*e.Time.Mean())
}

func (e *Exponential) Sample(ctx *SampleContext) float64 {
	return 1 - math.Exp(-e.Lambda.Sample(ctx)*e.Time.Sample(ctx))
}

func (e *Exponential) Deterministic() bool {
	return e.Lambda.Deterministic() && e.Time.Deterministic()
}

func (e *Exponential) Validate() error {
	if e.Lambda.Mean() < 0 {
		return fmt.Errorf("exponential rate is negative")
	}
	return firstError(e.Lambda.Validate(), e.Time.Validate())
}

// ArithmeticOp enumerates the internal expression node kinds.
type ArithmeticOp int

const (
	OpAdd ArithmeticOp = iota
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpPow
)

// Arithmetic combines sub-expressions with a basic operation.
// OpNeg uses only the first argument; OpSub/OpDiv/OpPow are binary;
// OpAdd/OpMul fold over all arguments.
type Arithmetic struct {
	Op   ArithmeticOp
	Args []Expression
}

func NewArithmetic(op ArithmeticOp, args ...Expression) *Arithmetic {
	return &Arithmetic{Op: op, Args: args}
}

func (a *Arithmetic) eval(val func(Expression) float64) float64 {
	switch a.Op {
	case OpAdd:
		sum := 0.0
		for _, arg := range a.Args {
			sum += val(arg)
		}
		return sum
	case OpMul:
		prod := 1.0
		for _, arg := range a.Args {
			prod *= val(arg)
		}
		return prod
	case OpSub:
		return val(a.Args[0]) - val(a.Args[1])
	case OpDiv:
		return val(a.Args[0]) / val(a.Args[1])
	case OpNeg:
		return -val(a.Args[0])
	case OpPow:
		return math.Pow(val(a.Args[0]), val(a.Args[1]))
	}
	return math.NaN()
}

func (a *Arithmetic) Mean() float64 {
	return a.eval(func(e Expression) float64 { return e.Mean() })
}

func (a *Arithmetic) Sample(ctx *SampleContext) float64 {
	return a.eval(func(e Expression) float64 { return e.Sample(ctx) })
}

func (a *Arithmetic) Deterministic() bool {
	for _, arg := range a.Args {
		if !arg.Deterministic() {
			return false
		}
	}
	return true
}

func (a *Arithmetic) Validate() error {
	want := 2
	switch a.Op {
	case OpNeg:
		want = 1
	case OpAdd, OpMul:
		if len(a.Args) < 1 {
			return fmt.Errorf("arithmetic expression without arguments")
		}
		want = len(a.Args)
	}
	if len(a.Args) != want {
		return fmt.Errorf("arithmetic op %d expects %d arguments, got %d", a.Op, want, len(a.Args))
	}
	for _, arg := range a.Args {
		if err := arg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
