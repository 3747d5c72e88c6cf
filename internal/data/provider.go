// Package data supplies the optional historical-market-data collaborator
// used to calibrate a study's starting realized-volatility/VRP pair from
// a real implied-vol surface before running a synthetic Monte Carlo
// study. It sits entirely outside the kernel's core loop: the kernel
// never reads live market data, only the Provider's output (a pair of
// floats) crosses into internal/config.
package data

import (
	"context"
	"time"
)

// Bar is a daily OHLC candle for the underlying.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}

// Provider supplies the two things VRP calibration needs: a daily price
// history (to estimate realized volatility) and an at-the-money option
// quote (to back out implied volatility). Secondary returns a fallback
// Provider to try when this one can't answer, or nil if there is none.
type Provider interface {
	Secondary() Provider
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
	ATMOptionMid(ctx context.Context, symbol string, asOf, expiry time.Time, underlyingPrice float64) (strike, callMid, putMid float64, err error)
}
