// Synthetic fallback Provider: generates plausible bars and an ATM
// quote when no real provider is configured, so a calibration run never
// hard-fails for lack of market data. Draws exclusively from an
// explicitly-seeded priceproc.RNG — no package here may touch
// math/rand's global state.
package data

import (
	"context"
	"math"
	"time"

	"github.com/contactkeval/oilsim/internal/priceproc"
)

type syntheticProvider struct {
	rng       *priceproc.RNG
	secondary Provider
}

// NewSyntheticProvider constructs a Provider that fabricates a
// plausible-looking price history and ATM quote from seed, for
// calibration runs with no real market-data source configured.
func NewSyntheticProvider(seed int64, secondary Provider) Provider {
	return &syntheticProvider{rng: priceproc.NewRNG(seed), secondary: secondary}
}

func (p *syntheticProvider) Secondary() Provider { return p.secondary }

func (p *syntheticProvider) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	if p.secondary != nil {
		if bars, err := p.secondary.DailyBars(ctx, symbol, from, to); err == nil {
			return bars, nil
		}
	}

	price := 70.0
	var out []Bar
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		if cur.Weekday() == time.Saturday || cur.Weekday() == time.Sunday {
			continue
		}
		delta := p.rng.StdNormal() * 0.015 * price
		open := price
		closeP := price + delta
		high := math.Max(open, closeP) + math.Abs(p.rng.StdNormal()*0.3)
		low := math.Min(open, closeP) - math.Abs(p.rng.StdNormal()*0.3)
		out = append(out, Bar{Date: cur, Open: open, High: high, Low: low, Close: closeP, Vol: 1000})
		price = closeP
	}
	return out, nil
}

func (p *syntheticProvider) ATMOptionMid(ctx context.Context, symbol string, asOf, expiry time.Time, underlyingPrice float64) (strike, callMid, putMid float64, err error) {
	if p.secondary != nil {
		if k, c, pt, serr := p.secondary.ATMOptionMid(ctx, symbol, asOf, expiry, underlyingPrice); serr == nil {
			return k, c, pt, nil
		}
	}
	strike = math.Round(underlyingPrice)
	callMid = 1.0 + math.Abs(p.rng.StdNormal()*0.5)
	putMid = 1.0 + math.Abs(p.rng.StdNormal()*0.5)
	return strike, callMid, putMid, nil
}
