// Package pricing implements Black-76 valuation and Greeks for European
// options on futures, plus implied-volatility inversion.
//
// Formulas here are quoted on the futures price F rather than a spot
// price carrying a cost of carry, which is the correct model for
// exchange-traded futures options (oil, and by extension any
// futures-quoted underlying). The package is pure and free of side
// effects — no logging, no state.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

const sqrt2Pi = 2.5066282746310002

// OptionType distinguishes calls from puts.
type OptionType int

const (
	Call OptionType = iota
	Put
)

// ErrNegativeTime is returned when T < 0, a precondition violation per the
// pricer's contract: T must never be negative.
var ErrNegativeTime = errors.New("pricing: time to expiry is negative")

// Greeks holds the analytic sensitivities computed alongside Price.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// Price computes the Black-76 price of a European future option.
//
//	F: futures price
//	K: strike
//	T: time to expiry in years (trading-day DTE / 252)
//	sigma: implied volatility (annualized)
//	r: risk-free rate (annualized, continuously compounded)
//
// T == 0 or sigma <= 0 returns the intrinsic value. T < 0 is a
// precondition violation: Price returns an error wrapping ErrNegativeTime
// and does not panic. The kernel values a leg on its expiration day by
// calling Price with T == 0.
func Price(typ OptionType, F, K, T, sigma, r float64) (float64, error) {
	if T < 0 {
		return 0, fmt.Errorf("pricing: Price(F=%.4f,K=%.4f,T=%.6f): %w", F, K, T, ErrNegativeTime)
	}
	if T == 0 || sigma <= 0 {
		return intrinsic(typ, F, K), nil
	}

	d1, d2 := d1d2(F, K, T, sigma)
	disc := math.Exp(-r * T)

	switch typ {
	case Call:
		return disc * (F*normCDF(d1) - K*normCDF(d2)), nil
	default:
		return disc * (K*normCDF(-d2) - F*normCDF(-d1)), nil
	}
}

// ComputeGreeks returns Delta, Gamma, Theta and Vega for the same inputs
// accepted by Price, computed analytically from the same d1/d2.
func ComputeGreeks(typ OptionType, F, K, T, sigma, r float64) (Greeks, error) {
	if T < 0 {
		return Greeks{}, fmt.Errorf("pricing: ComputeGreeks(F=%.4f,K=%.4f,T=%.6f): %w", F, K, T, ErrNegativeTime)
	}
	if T == 0 || sigma <= 0 {
		// Intrinsic regime: delta is 0 or ±1 depending on moneyness, all
		// other Greeks are zero (the payoff is piecewise linear with a
		// kink, not differentiable at the money — we report the
		// one-sided value away from the kink).
		delta := 0.0
		switch {
		case typ == Call && F > K:
			delta = 1
		case typ == Put && F < K:
			delta = -1
		}
		return Greeks{Delta: delta}, nil
	}

	d1, d2 := d1d2(F, K, T, sigma)
	disc := math.Exp(-r * T)
	pdf := normPDF(d1)

	gamma := disc * pdf / (F * sigma * math.Sqrt(T))
	vega := disc * F * pdf * math.Sqrt(T)

	var delta, theta float64
	switch typ {
	case Call:
		delta = disc * normCDF(d1)
		theta = -disc*F*pdf*sigma/(2*math.Sqrt(T)) - r*disc*K*normCDF(d2) + r*disc*F*normCDF(d1)
	default:
		delta = -disc * normCDF(-d1)
		theta = -disc*F*pdf*sigma/(2*math.Sqrt(T)) + r*disc*K*normCDF(-d2) - r*disc*F*normCDF(-d1)
	}
	return Greeks{Delta: delta, Gamma: gamma, Theta: theta, Vega: vega}, nil
}

func intrinsic(typ OptionType, F, K float64) float64 {
	if typ == Call {
		return math.Max(F-K, 0)
	}
	return math.Max(K-F, 0)
}

func d1d2(F, K, T, sigma float64) (d1, d2 float64) {
	d1 = (math.Log(F/K) + 0.5*sigma*sigma*T) / (sigma * math.Sqrt(T))
	d2 = d1 - sigma*math.Sqrt(T)
	return d1, d2
}

// ImpliedVol solves for sigma such that Price(typ, F, K, T, sigma, r)
// equals marketPrice, via Newton-Raphson seeded at 20%. If Newton stalls
// (vega too small to trust the step) or fails to converge within its
// iteration budget, it falls back to bisection over [1e-4, 5], which price
// is monotonically increasing in sigma makes safe.
func ImpliedVol(typ OptionType, F, K, T, r, marketPrice float64) (float64, error) {
	if T <= 0 {
		return 0, fmt.Errorf("pricing: ImpliedVol requires T > 0, got %.6f", T)
	}

	sigma := 0.20
	const (
		maxIter = 100
		tol     = 1e-8
	)

	for i := 0; i < maxIter; i++ {
		price, err := Price(typ, F, K, T, sigma, r)
		if err != nil {
			return 0, err
		}
		diff := price - marketPrice

		if math.Abs(diff) < tol {
			return sigma, nil
		}

		g, err := ComputeGreeks(typ, F, K, T, sigma, r)
		if err != nil {
			return 0, err
		}
		if g.Vega < 1e-8 {
			break
		}

		next := sigma - diff/g.Vega
		if next <= 0 || next > 5 {
			break
		}
		sigma = next
	}

	return bisectImpliedVol(typ, F, K, T, r, marketPrice)
}

// bisectImpliedVol brackets the root between a near-zero and a deep vol,
// relying on Price(sigma) being monotonically increasing in sigma.
func bisectImpliedVol(typ OptionType, F, K, T, r, marketPrice float64) (float64, error) {
	const (
		maxIter = 200
		tol     = 1e-8
	)
	lo, hi := 1e-4, 5.0

	loPrice, err := Price(typ, F, K, T, lo, r)
	if err != nil {
		return 0, err
	}
	hiPrice, err := Price(typ, F, K, T, hi, r)
	if err != nil {
		return 0, err
	}
	if marketPrice < loPrice || marketPrice > hiPrice {
		return 0, fmt.Errorf("pricing: implied vol did not converge for F=%.4f K=%.4f T=%.6f price=%.4f", F, K, T, marketPrice)
	}

	for i := 0; i < maxIter; i++ {
		mid := 0.5 * (lo + hi)
		price, err := Price(typ, F, K, T, mid, r)
		if err != nil {
			return 0, err
		}
		diff := price - marketPrice

		if math.Abs(diff) < tol {
			return mid, nil
		}
		if diff < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return 0.5 * (lo + hi), nil
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}
