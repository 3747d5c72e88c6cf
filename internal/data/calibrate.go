package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/contactkeval/oilsim/internal/pricing"
)

// Calibration is the starting realized-vol/VRP pair a synthetic study
// should use, derived from a historical window ending at asOf.
type Calibration struct {
	RealizedVol float64
	ImpliedVol  float64
	VRP         float64 // max(ImpliedVol - RealizedVol, 0)
}

// Calibrate fetches symbol's daily bars over [from, asOf] to estimate
// realized volatility, and an ATM option quote expiring at expiry to
// back out implied volatility, then returns the pair a
// config.SimulationConfig can be seeded with. It returns an error when
// any step fails (bars, realized vol, ATM quote, implied vol); it has no
// fallback values of its own.
func Calibrate(ctx context.Context, p Provider, symbol string, from, asOf, expiry time.Time, riskFreeRate float64) (Calibration, error) {
	bars, err := p.DailyBars(ctx, symbol, from, asOf)
	if err != nil {
		return Calibration{}, fmt.Errorf("data: calibrate: daily bars: %w", err)
	}
	realizedVol, err := realizedVolatility(bars)
	if err != nil {
		return Calibration{}, fmt.Errorf("data: calibrate: %w", err)
	}

	strike, callMid, _, err := p.ATMOptionMid(ctx, symbol, asOf, expiry, bars[len(bars)-1].Close)
	if err != nil {
		return Calibration{}, fmt.Errorf("data: calibrate: atm quote: %w", err)
	}

	T := expiry.Sub(asOf).Hours() / 24 / 365
	if T <= 0 {
		return Calibration{}, fmt.Errorf("data: calibrate: expiry %s not after as-of %s", expiry, asOf)
	}

	impliedVol, err := pricing.ImpliedVol(pricing.Call, bars[len(bars)-1].Close, strike, T, riskFreeRate, callMid)
	if err != nil {
		return Calibration{}, fmt.Errorf("data: calibrate: implied vol: %w", err)
	}

	vrp := impliedVol - realizedVol
	if vrp < 0 {
		vrp = 0
	}
	return Calibration{RealizedVol: realizedVol, ImpliedVol: impliedVol, VRP: vrp}, nil
}

// realizedVolatility annualizes the sample standard deviation of daily
// log returns (252 trading days/year), the same convention
// internal/priceproc's GBM generator assumes for its sigma parameter.
func realizedVolatility(bars []Bar) (float64, error) {
	if len(bars) < 2 {
		return 0, fmt.Errorf("need at least 2 bars, got %d", len(bars))
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 {
			continue
		}
		returns = append(returns, math.Log(bars[i].Close/bars[i-1].Close))
	}
	if len(returns) < 2 {
		return 0, fmt.Errorf("insufficient valid returns")
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252), nil
}
