// Package strike resolves a strike selection rule against current market
// state into a concrete, tick-rounded strike price.
//
// Rules are modeled as a tagged sum type (RuleKind + payload fields) and
// dispatched with an exhaustive switch, per the project-wide convention of
// avoiding interface-hierarchy polymorphism for closed variant sets.
package strike

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

// RuleKind tags which selection rule a Rule carries.
type RuleKind int

const (
	ATM RuleKind = iota
	OTMPoints
	ITMPoints
	Percentage
	Fixed
	DeltaTarget
	// Expression resolves a strike from a govaluate expression referencing
	// prior legs in the same strategy, e.g. "{LEG1.STRIKE}+10" — needed by
	// multi-leg strategies (iron condors, ratio spreads).
	Expression
)

// OptionType mirrors pricing.OptionType without importing it, keeping
// this package's dependency surface limited to what it actually needs
// (delta search calls a caller-supplied delta function instead).
type OptionType int

const (
	Call OptionType = iota
	Put
)

// Rule is a tagged selection rule. Only the fields relevant to Kind are
// meaningful.
type Rule struct {
	Kind        RuleKind
	Type        OptionType // needed for OTM/ITM sign and delta target
	Points      float64    // OTMPoints / ITMPoints
	Pct         float64    // Percentage, e.g. 0.95 for 95% of spot
	Fixed       float64    // Fixed
	TargetDelta float64    // DeltaTarget, signed per Type convention
	Expr        string     // Expression
}

// DeltaFunc computes the signed delta of a candidate strike at the given
// type; Resolve's DeltaTarget search calls this once per candidate tick in
// the search window. It is supplied by the caller so this package stays
// pure and pricer-agnostic. The kernel builds its Market values without a
// DeltaFunc, so a DeltaTarget rule resolved by the kernel returns an error.
type DeltaFunc func(typ OptionType, strike float64) float64

// Market bundles the current market state a rule is resolved against.
type Market struct {
	Underlying float64
	TickSize   float64
	Delta      DeltaFunc // required only for DeltaTarget
	Legs       []LegRef  // required only for Expression
}

// LegRef is the minimal prior-leg context an Expression rule can
// reference: {LEGn.STRIKE} and {LEGn.PREMIUM}.
type LegRef struct {
	Strike      float64
	OpenPremium float64
}

// deltaSearchHalfWindow is the number of ticks searched on each side of
// ATM for DeltaTarget — wide enough that a target delta near the tails
// of a realistic vol surface still resolves to a tick.
const deltaSearchHalfWindow = 40

// Resolve computes a tick-rounded strike for rule against mkt.
func Resolve(rule Rule, mkt Market) (float64, error) {
	switch rule.Kind {
	case ATM:
		return roundToTick(mkt.Underlying, mkt.TickSize, roundNearest), nil

	case OTMPoints:
		target := mkt.Underlying
		switch rule.Type {
		case Put:
			target -= rule.Points
		default: // Call
			target += rule.Points
		}
		return roundToTick(target, mkt.TickSize, roundOutwardOTM(rule.Type)), nil

	case ITMPoints:
		target := mkt.Underlying
		switch rule.Type {
		case Put:
			target += rule.Points
		default: // Call
			target -= rule.Points
		}
		// ITM ties use the opposite type's OTM tie rule, so they round
		// away from the money (deeper in the money).
		return roundToTick(target, mkt.TickSize, roundOutwardOTM(opposite(rule.Type))), nil

	case Percentage:
		return roundToTick(mkt.Underlying*rule.Pct, mkt.TickSize, roundNearest), nil

	case Fixed:
		return roundToTick(rule.Fixed, mkt.TickSize, roundNearest), nil

	case DeltaTarget:
		if mkt.Delta == nil {
			return 0, fmt.Errorf("strike: DeltaTarget rule requires Market.Delta")
		}
		return resolveDeltaTarget(rule, mkt), nil

	case Expression:
		return resolveExpression(rule.Expr, mkt)

	default:
		return 0, fmt.Errorf("strike: unknown rule kind %d", rule.Kind)
	}
}

func opposite(t OptionType) OptionType {
	if t == Call {
		return Put
	}
	return Call
}

// roundMode selects the tie-breaking behavior for roundToTick.
type roundMode func(ticks float64) float64

func roundNearest(ticks float64) float64 { return math.Round(ticks) }

// roundOutwardOTM rounds a tie exactly-between-two-ticks further OTM:
// upward for a call (further above spot), downward for a put (further
// below spot).
func roundOutwardOTM(t OptionType) roundMode {
	return func(ticks float64) float64 {
		frac := ticks - math.Floor(ticks)
		if frac != 0.5 {
			return math.Round(ticks)
		}
		if t == Call {
			return math.Ceil(ticks)
		}
		return math.Floor(ticks)
	}
}

func roundToTick(price, tick float64, mode roundMode) float64 {
	if tick <= 0 {
		return price
	}
	ticks := price / tick
	return mode(ticks) * tick
}

// resolveDeltaTarget searches integer multiples of tick within
// +-deltaSearchHalfWindow ticks of ATM for the strike whose delta is
// closest to rule.TargetDelta, breaking ties toward the closer-to-ATM
// strike (the earlier-found candidate in this expanding-ring search).
func resolveDeltaTarget(rule Rule, mkt Market) float64 {
	tick := mkt.TickSize
	atmTicks := math.Round(mkt.Underlying / tick)

	bestStrike := atmTicks * tick
	bestDiff := math.Abs(mkt.Delta(rule.Type, bestStrike) - rule.TargetDelta)

	for offset := 1; offset <= deltaSearchHalfWindow; offset++ {
		for _, sign := range []float64{1, -1} {
			candidate := (atmTicks + sign*float64(offset)) * tick
			diff := math.Abs(mkt.Delta(rule.Type, candidate) - rule.TargetDelta)
			if diff < bestDiff {
				bestDiff = diff
				bestStrike = candidate
			}
		}
	}
	return bestStrike
}

func resolveExpression(expr string, mkt Market) (float64, error) {
	evalStr, err := substituteLegRefs(expr, mkt.Legs)
	if err != nil {
		return 0, err
	}

	evalExpr, err := govaluate.NewEvaluableExpression(evalStr)
	if err != nil {
		return 0, fmt.Errorf("strike: invalid expression %q: %w", expr, err)
	}

	result, err := evalExpr.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("strike: expression %q failed to evaluate: %w", expr, err)
	}

	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("strike: expression %q did not evaluate to a number", expr)
	}
	return roundToTick(f, mkt.TickSize, roundNearest), nil
}
