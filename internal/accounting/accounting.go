// Package accounting folds an event log into P&L and trade statistics,
// and aggregates per-run results across a Monte Carlo study. Every
// function here is a pure fold — accounting never mutates position
// state.
package accounting

import (
	"math"
	"sort"

	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/contract"
	"github.com/contactkeval/oilsim/internal/eventlog"
)

// EquitySample is one daily mark of cumulative net P&L.
type EquitySample struct {
	Day    calendar.Day
	Equity float64
}

// Summary is the per-run fold result.
type Summary struct {
	RealizedPnL float64
	Commissions float64
	NetPnL      float64
	Opens       int
	Closes      int
	Rolls       int
	Rejections  int
	Wins        int
	EquityCurve []EquitySample
	MaxDrawdown float64
}

// legAccum tracks the fields needed to realize the round-trip cash flow
// of a leg's current contract instance: the side and premium it was
// opened (or last rolled into) at. Fold counts a "win" exactly once per
// completed (open..close) lifecycle whose cumulative realized P&L is
// positive at close.
type legAccum struct {
	entrySide    contract.Side
	entryPremium float64
	lifetimePnL  float64
}

// Fold walks log in order and produces a Summary. It agrees with the
// live Position State to machine precision: entry(side, premium) is
// cached on open/roll and realized against the matching exit premium
// exactly the way internal/position.realize does.
func Fold(log eventlog.Store) Summary {
	var s Summary
	legs := make(map[string]*legAccum)
	var dayPnL = map[calendar.Day]float64{}

	for _, evt := range log.Iter() {
		la, ok := legs[evt.LegID]
		if !ok {
			la = &legAccum{}
			legs[evt.LegID] = la
		}

		switch evt.Kind {
		case eventlog.PositionOpened:
			s.Opens++
			la.entrySide = evt.Opened.Contract.Side
			la.entryPremium = evt.Opened.Premium
			la.lifetimePnL = 0

		case eventlog.PositionClosed:
			p := evt.Closed
			realized := la.entrySide.CreditSign()*la.entryPremium - la.entrySide.CreditSign()*p.Premium - p.Commission
			la.lifetimePnL += realized
			s.RealizedPnL += realized
			s.Commissions += p.Commission
			s.Closes++
			if la.lifetimePnL > 0 {
				s.Wins++
			}
			dayPnL[evt.Timestamp.Day] += realized

		case eventlog.LegRolled:
			p := evt.Rolled
			realized := la.entrySide.CreditSign()*la.entryPremium - la.entrySide.CreditSign()*p.ExitPremium - p.Commission
			la.lifetimePnL += realized
			s.RealizedPnL += realized
			s.Commissions += p.Commission
			s.Rolls++
			dayPnL[evt.Timestamp.Day] += realized

			la.entrySide = p.NewContract.Side
			la.entryPremium = p.EntryPremium

		case eventlog.RollRejected:
			s.Rejections++
		}
	}

	s.NetPnL = s.RealizedPnL
	s.EquityCurve, s.MaxDrawdown = buildEquityCurve(dayPnL)
	return s
}

func buildEquityCurve(dayPnL map[calendar.Day]float64) ([]EquitySample, float64) {
	days := make([]calendar.Day, 0, len(dayPnL))
	for d := range dayPnL {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	var curve []EquitySample
	var cum, peak, maxDD float64
	for _, d := range days {
		cum += dayPnL[d]
		curve = append(curve, EquitySample{Day: d, Equity: cum})
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return curve, maxDD
}

// StudyStats are distribution statistics across a Monte Carlo study's
// per-run net P&L values.
type StudyStats struct {
	N           int
	Mean        float64
	StdErr      float64
	Sharpe      float64         // annualized, factor sqrt(252)
	Percentiles map[int]float64 // e.g. {5: ..., 50: ..., 95: ...}
	ValueAtRisk float64         // at the configured confidence, as a loss magnitude
	Confidence  float64
}

// Aggregate folds per-run net P&L values into StudyStats. percentiles
// names which percentiles (0..100) to compute; confidence is the VaR
// confidence level (e.g. 0.95).
func Aggregate(netPnLs []float64, percentiles []int, confidence float64) StudyStats {
	n := len(netPnLs)
	stats := StudyStats{N: n, Confidence: confidence, Percentiles: map[int]float64{}}
	if n == 0 {
		return stats
	}

	sorted := make([]float64, n)
	copy(sorted, netPnLs)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)
	stats.Mean = mean

	if n > 1 {
		var variance float64
		for _, v := range sorted {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(n - 1)
		sd := math.Sqrt(variance)
		stats.StdErr = sd / math.Sqrt(float64(n))
		if sd > 0 {
			stats.Sharpe = (mean / sd) * math.Sqrt(252.0)
		}
	}

	for _, p := range percentiles {
		stats.Percentiles[p] = percentile(sorted, float64(p))
	}

	varIdx := int((1 - confidence) * float64(n))
	if varIdx < 0 {
		varIdx = 0
	}
	if varIdx >= n {
		varIdx = n - 1
	}
	if loss := -sorted[varIdx]; loss > 0 {
		stats.ValueAtRisk = loss
	}

	return stats
}

// percentile linearly interpolates the p-th percentile (0..100) of a
// sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
