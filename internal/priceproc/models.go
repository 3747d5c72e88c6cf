package priceproc

import "math"

// OUParams parameterizes a mean-reverting Ornstein-Uhlenbeck process, an
// extension point alongside GBM for underlyings (like many commodity
// futures) that exhibit mean reversion rather than a pure random walk.
type OUParams struct {
	MeanLevel     float64 // long-run mean price
	ReversionRate float64 // speed of reversion (theta)
	Vol           float64 // realized vol (sigma)
	VRP           float64
}

func (p OUParams) ImpliedVol() float64 { return p.Vol + p.VRP }

// OUGenerator implements an Euler-discretized Ornstein-Uhlenbeck step in
// price space:
//
//	S_{t+1} = S_t + theta*(mean - S_t)*dt + sigma*sqrt(dt)*Z
type OUGenerator struct {
	Params OUParams
}

func NewOUGenerator(p OUParams) *OUGenerator { return &OUGenerator{Params: p} }

func (g *OUGenerator) Next(prev float64, rng *RNG) float64 {
	z := rng.StdNormal()
	reversion := g.Params.ReversionRate * (g.Params.MeanLevel - prev) * dt
	diffusion := g.Params.Vol * sqrtDt * z
	return prev + reversion + diffusion
}

// Schwartz1FParams parameterizes the Schwartz (1997) single-factor model:
// log-price mean-reverts to a long-run log-level, the standard
// one-factor model for commodities whose spot price reverts to a cost
// of extraction/storage equilibrium.
type Schwartz1FParams struct {
	LogMeanLevel  float64
	ReversionRate float64
	Vol           float64
	VRP           float64
}

func (p Schwartz1FParams) ImpliedVol() float64 { return p.Vol + p.VRP }

type Schwartz1FGenerator struct {
	Params Schwartz1FParams
}

func NewSchwartz1FGenerator(p Schwartz1FParams) *Schwartz1FGenerator {
	return &Schwartz1FGenerator{Params: p}
}

func (g *Schwartz1FGenerator) Next(prev float64, rng *RNG) float64 {
	z := rng.StdNormal()
	logPrev := math.Log(prev)
	reversion := g.Params.ReversionRate * (g.Params.LogMeanLevel - logPrev) * dt
	diffusion := g.Params.Vol * sqrtDt * z
	return math.Exp(logPrev + reversion + diffusion)
}

// HestonParams parameterizes the Heston stochastic-volatility model: the
// instantaneous variance itself follows a mean-reverting square-root
// process, driven by a second, correlated standard-normal draw.
type HestonParams struct {
	Drift           float64
	InitialVariance float64
	MeanVariance    float64
	VarReversion    float64
	VolOfVol        float64
	Correlation     float64 // rho, between price and variance shocks
	VRP             float64
}

// HestonGenerator carries running variance as internal state since, unlike
// GBM/OU/Schwartz, Heston's volatility is itself a process rather than a
// fixed parameter.
type HestonGenerator struct {
	Params   HestonParams
	variance float64
}

func NewHestonGenerator(p HestonParams) *HestonGenerator {
	return &HestonGenerator{Params: p, variance: p.InitialVariance}
}

func (g *HestonGenerator) Next(prev float64, rng *RNG) float64 {
	z1 := rng.StdNormal()
	z2 := rng.StdNormal()
	// Correlate z2 against z1 via Cholesky of the 2x2 correlation matrix.
	rho := g.Params.Correlation
	zCorr := rho*z1 + math.Sqrt(1-rho*rho)*z2

	v := math.Max(g.variance, 0)
	sqrtV := math.Sqrt(v)

	nextVar := v + g.Params.VarReversion*(g.Params.MeanVariance-v)*dt + g.Params.VolOfVol*sqrtV*sqrtDt*z2
	g.variance = math.Max(nextVar, 0)

	logDrift := (g.Params.Drift - 0.5*v) * dt
	logDiffusion := sqrtV * sqrtDt * zCorr
	return prev * math.Exp(logDrift+logDiffusion)
}

// ImpliedVol returns the current instantaneous implied vol estimate,
// derived from the running variance state plus the configured VRP.
func (g *HestonGenerator) ImpliedVol() float64 {
	return math.Sqrt(math.Max(g.variance, 0)) + g.Params.VRP
}
