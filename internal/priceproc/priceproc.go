// Package priceproc generates deterministic synthetic underlying price
// paths from a seed and a stochastic-process model.
//
// The canonical model is Geometric Brownian Motion with exact
// discretization. Every model variant consumes *realized* volatility —
// implied volatility, which feeds the pricing package, is a distinct
// quantity related by a non-negative volatility risk premium (VRP). Each
// model's parameter struct (Params, OUParams, Schwartz1FParams,
// HestonParams) carries its own VRP field for that separation.
//
// No generator touches math/rand's global source: every draw comes from
// an *RNG constructed from an explicit seed and handed to Next by the
// caller, so two runs never interfere and a run is reproducible
// regardless of what else is happening in the process.
package priceproc

import (
	"math"
	"math/rand"
)

// RNG wraps a seeded math/rand.Rand and is the only source of randomness
// a Generator may use. It exists so "sample from standard normal" is the
// only operation exposed to generator code — sampling uniform-on-[0,1)
// where a normal draw was intended is the canonical bug this package's
// contract forbids (see Generator doc).
type RNG struct {
	r *rand.Rand
}

// NewRNG constructs an RNG from an explicit seed. The same seed always
// produces the same sequence of draws on a given platform.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// StdNormal returns a draw from the standard normal distribution N(0,1).
func (g *RNG) StdNormal() float64 {
	return g.r.NormFloat64()
}

// Params bundles the realized-vol/implied-vol separation shared by every
// model variant. VRP (Volatility Risk Premium) must be >= 0 and defaults
// to 0; ImpliedVol is what the pricing package should be handed, never
// RealizedVol.
type Params struct {
	InitialPrice float64
	Drift        float64 // mu, annualized
	RealizedVol  float64 // sigma, annualized; drives the price path
	VRP          float64 // sigma_impl = sigma_real + VRP, VRP >= 0
}

// ImpliedVol returns the volatility the pricing package should consume.
func (p Params) ImpliedVol() float64 {
	return p.RealizedVol + p.VRP
}

// dt is one trading-day step expressed in years (252 trading days/year).
const dt = 1.0 / 252.0

// Generator produces the next underlying price given the previous price
// and an RNG. Implementations MUST draw from RNG.StdNormal — never a
// uniform draw — or the resulting path degenerates into a drift-only
// curve with no volatility, which is an explicit correctness bug this
// design forbids.
type Generator interface {
	// Next returns the price one trading day after prev.
	Next(prev float64, rng *RNG) float64
}

// GBMGenerator implements exact Geometric Brownian Motion discretization:
//
//	S_{t+1} = S_t * exp( (mu - sigma^2/2) * dt + sigma * sqrt(dt) * Z )
//
// where Z is a standard-normal draw from the owned RNG.
type GBMGenerator struct {
	Params Params
}

func NewGBMGenerator(p Params) *GBMGenerator {
	return &GBMGenerator{Params: p}
}

func (g *GBMGenerator) Next(prev float64, rng *RNG) float64 {
	mu := g.Params.Drift
	sigma := g.Params.RealizedVol
	z := rng.StdNormal()
	drift := (mu - 0.5*sigma*sigma) * dt
	diffusion := sigma * sqrtDt * z
	return prev * math.Exp(drift+diffusion)
}

// sqrtDt is precomputed since dt is a package constant.
var sqrtDt = math.Sqrt(dt)

// Generate produces a deterministic sequence of steps+1 prices: initial
// at index 0, followed by steps calls of gen.Next, using rng for every
// draw. Calling Generate
// twice with a freshly-seeded RNG of the same seed and the same Params
// yields bit-identical output.
func Generate(gen Generator, initial float64, steps int, rng *RNG) []float64 {
	out := make([]float64, steps+1)
	out[0] = initial
	for i := 1; i <= steps; i++ {
		out[i] = gen.Next(out[i-1], rng)
	}
	return out
}
