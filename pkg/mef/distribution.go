package mef

import (
	"fmt"
	"math"
)

// Distribution leaves. Every sampler is built from uniform draws so the
// engine only ever needs a next-uniform primitive from its RNG.

// Uniform is the continuous uniform distribution on [Lower, Upper).
type Uniform struct {
	Lower, Upper Expression
}

func NewUniform(lo, hi Expression) *Uniform { return &Uniform{Lower: lo, Upper: hi} }

func (u *Uniform) Mean() float64 { return (u.Lower.Mean() + u.Upper.Mean()) / 2 }

func (u *Uniform) Sample(ctx *SampleContext) float64 {
	lo, hi := u.Lower.Sample(ctx), u.Upper.Sample(ctx)
	return lo + (hi-lo)*ctx.RNG.Float64()
}

func (u *Uniform) Deterministic() bool { return false }

func (u *Uniform) Validate() error {
	if u.Lower.Mean() >= u.Upper.Mean() {
		return fmt.Errorf("uniform lower bound %f is not below upper bound %f",
			u.Lower.Mean(), u.Upper.Mean())
	}
	return firstError(u.Lower.Validate(), u.Upper.Validate())
}

// Triangular is the triangular distribution with mode between the bounds.
type Triangular struct {
	Lower, Mode, Upper Expression
}

func NewTriangular(lo, mode, hi Expression) *Triangular {
	return &Triangular{Lower: lo, Mode: mode, Upper: hi}
}

func (t *Triangular) Mean() float64 {
	return (t.Lower.Mean() + t.Mode.Mean() + t.Upper.Mean()) / 3
}

// Sample uses the closed-form inverse CDF.
func (t *Triangular) Sample(ctx *SampleContext) float64 {
	a, m, b := t.Lower.Sample(ctx), t.Mode.Sample(ctx), t.Upper.Sample(ctx)
	u := ctx.RNG.Float64()
	fc := (m - a) / (b - a)
	if u < fc {
		return a + math.Sqrt(u*(b-a)*(m-a))
	}
	return b - math.Sqrt((1-u)*(b-a)*(b-m))
}

func (t *Triangular) Deterministic() bool { return false }

func (t *Triangular) Validate() error {
	a, m, b := t.Lower.Mean(), t.Mode.Mean(), t.Upper.Mean()
	if !(a <= m && m <= b && a < b) {
		return fmt.Errorf("triangular bounds are not ordered: a=%f m=%f b=%f", a, m, b)
	}
	return firstError(t.Lower.Validate(), t.Mode.Validate(), t.Upper.Validate())
}

// Normal is the Gaussian distribution.
type Normal struct {
	Mu, Sigma Expression
}

func NewNormal(mu, sigma Expression) *Normal { return &Normal{Mu: mu, Sigma: sigma} }

func (n *Normal) Mean() float64 { return n.Mu.Mean() }

func (n *Normal) Sample(ctx *SampleContext) float64 {
	return n.Mu.Sample(ctx) + n.Sigma.Sample(ctx)*sampleStandardNormal(ctx.RNG)
}

func (n *Normal) Deterministic() bool { return false }

func (n *Normal) Validate() error {
	if n.Sigma.Mean() <= 0 {
		return fmt.Errorf("normal standard deviation must be positive, got %f", n.Sigma.Mean())
	}
	return firstError(n.Mu.Validate(), n.Sigma.Validate())
}

// LogNormal is parameterised by the mu/sigma of the underlying normal.
type LogNormal struct {
	Mu, Sigma Expression
}

func NewLogNormal(mu, sigma Expression) *LogNormal { return &LogNormal{Mu: mu, Sigma: sigma} }

func (l *LogNormal) Mean() float64 {
	s := l.Sigma.Mean()
	return math.Exp(l.Mu.Mean() + s*s/2)
}

func (l *LogNormal) Sample(ctx *SampleContext) float64 {
	return math.Exp(l.Mu.Sample(ctx) + l.Sigma.Sample(ctx)*sampleStandardNormal(ctx.RNG))
}

func (l *LogNormal) Deterministic() bool { return false }

func (l *LogNormal) Validate() error {
	if l.Sigma.Mean() <= 0 {
		return fmt.Errorf("log-normal sigma must be positive, got %f", l.Sigma.Mean())
	}
	return firstError(l.Mu.Validate(), l.Sigma.Validate())
}

// Gamma is the gamma distribution with shape K and scale Theta.
type Gamma struct {
	K, Theta Expression
}

func NewGamma(k, theta Expression) *Gamma { return &Gamma{K: k, Theta: theta} }

func (g *Gamma) Mean() float64 { return g.K.Mean() * g.Theta.Mean() }

func (g *Gamma) Sample(ctx *SampleContext) float64 {
	return sampleGamma(ctx.RNG, g.K.Sample(ctx)) * g.Theta.Sample(ctx)
}

func (g *Gamma) Deterministic() bool { return false }

func (g *Gamma) Validate() error {
	if g.K.Mean() <= 0 || g.Theta.Mean() <= 0 {
		return fmt.Errorf("gamma shape and scale must be positive: k=%f theta=%f",
			g.K.Mean(), g.Theta.Mean())
	}
	return firstError(g.K.Validate(), g.Theta.Validate())
}

// Beta is the beta distribution on [0, 1].
type Beta struct {
	Alpha, BetaP Expression
}

func NewBeta(alpha, beta Expression) *Beta { return &Beta{Alpha: alpha, BetaP: beta} }

func (b *Beta) Mean() float64 {
	a, bb := b.Alpha.Mean(), b.BetaP.Mean()
	return a / (a + bb)
}

// Sample draws X/(X+Y) with X ~ Gamma(alpha), Y ~ Gamma(beta).
func (b *Beta) Sample(ctx *SampleContext) float64 {
	x := sampleGamma(ctx.RNG, b.Alpha.Sample(ctx))
	y := sampleGamma(ctx.RNG, b.BetaP.Sample(ctx))
	return x / (x + y)
}

func (b *Beta) Deterministic() bool { return false }

func (b *Beta) Validate() error {
	if b.Alpha.Mean() <= 0 || b.BetaP.Mean() <= 0 {
		return fmt.Errorf("beta parameters must be positive: alpha=%f beta=%f",
			b.Alpha.Mean(), b.BetaP.Mean())
	}
	return firstError(b.Alpha.Validate(), b.BetaP.Validate())
}

// Poisson is the Poisson distribution with rate Lambda.
type Poisson struct {
	Lambda Expression
}

func NewPoisson(lambda Expression) *Poisson { return &Poisson{Lambda: lambda} }

func (p *Poisson) Mean() float64 { return p.Lambda.Mean() }

func (p *Poisson) Sample(ctx *SampleContext) float64 {
	return samplePoisson(ctx.RNG, p.Lambda.Sample(ctx))
}

func (p *Poisson) Deterministic() bool { return false }

func (p *Poisson) Validate() error {
	if p.Lambda.Mean() <= 0 {
		return fmt.Errorf("poisson rate must be positive, got %f", p.Lambda.Mean())
	}
	return p.Lambda.Validate()
}

// Histogram is a piecewise-uniform empirical distribution.
// Bounds has one more element than Weights; bin i spans
// [Bounds[i], Bounds[i+1]) with relative weight Weights[i].
type Histogram struct {
	Bounds  []float64
	Weights []float64
}

func NewHistogram(bounds, weights []float64) *Histogram {
	return &Histogram{Bounds: bounds, Weights: weights}
}

func (h *Histogram) total() float64 {
	sum := 0.0
	for _, w := range h.Weights {
		sum += w
	}
	return sum
}

func (h *Histogram) Mean() float64 {
	total := h.total()
	mean := 0.0
	for i, w := range h.Weights {
		mid := (h.Bounds[i] + h.Bounds[i+1]) / 2
		mean += mid * w / total
	}
	return mean
}

func (h *Histogram) Sample(ctx *SampleContext) float64 {
	u := ctx.RNG.Float64() * h.total()
	acc := 0.0
	for i, w := range h.Weights {
		acc += w
		if u < acc || i == len(h.Weights)-1 {
			return h.Bounds[i] + (h.Bounds[i+1]-h.Bounds[i])*ctx.RNG.Float64()
		}
	}
	return h.Bounds[len(h.Bounds)-1]
}

func (h *Histogram) Deterministic() bool { return false }

func (h *Histogram) Validate() error {
	if len(h.Bounds) != len(h.Weights)+1 {
		return fmt.Errorf("histogram needs len(bounds) == len(weights)+1, got %d and %d",
			len(h.Bounds), len(h.Weights))
	}
	if len(h.Weights) == 0 {
		return fmt.Errorf("histogram has no bins")
	}
	for i := 1; i < len(h.Bounds); i++ {
		if h.Bounds[i] <= h.Bounds[i-1] {
			return fmt.Errorf("histogram bounds are not strictly increasing at index %d", i)
		}
	}
	for i, w := range h.Weights {
		if w < 0 {
			return fmt.Errorf("histogram weight %d is negative", i)
		}
	}
	if h.total() <= 0 {
		return fmt.Errorf("histogram weights sum to zero")
	}
	return nil
}

// sampleStandardNormal draws one N(0,1) variate via Box-Muller.
func sampleStandardNormal(rng UniformSource) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// sampleGamma draws from Gamma(k, 1) with the Marsaglia-Tsang method.
// Shapes below one are boosted through Gamma(k+1) * U^(1/k).
func sampleGamma(rng UniformSource, k float64) float64 {
	if k < 1 {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return sampleGamma(rng, k+1) * math.Pow(u, 1/k)
	}
	d := k - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := sampleStandardNormal(rng)
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// samplePoisson draws a Poisson count. Knuth's product method for small
// rates; a clamped normal approximation once the rate is large enough
// for it to be accurate.
func samplePoisson(rng UniformSource, lambda float64) float64 {
	if lambda >= 30 {
		v := math.Floor(lambda + math.Sqrt(lambda)*sampleStandardNormal(rng) + 0.5)
		if v < 0 {
			return 0
		}
		return v
	}
	limit := math.Exp(-lambda)
	count := 0
	prod := rng.Float64()
	for prod > limit {
		count++
		prod *= rng.Float64()
	}
	return float64(count)
}
