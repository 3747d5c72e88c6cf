// Package calendar implements the synthetic weekday trading calendar the
// simulation kernel steps through, and the days-to-expiration arithmetic
// built on top of it.
//
// Day 0 is a Monday. A day is tradable unless it falls on a weekend; there
// are no holidays. Every function here is total and referentially
// transparent — there is no notion of "now" and nothing allocates.
package calendar

// Day is a trading-calendar day index. Day 0 is a Monday.
type Day uint32

// daysPerWeek is the period of the weekend pattern.
const daysPerWeek = 7

// IsTradingDay reports whether d is a weekday (Mon–Fri). Day indices whose
// value mod 7 is 5 or 6 are Saturday and Sunday respectively.
func IsTradingDay(d Day) bool {
	wd := int(d % daysPerWeek)
	return wd != 5 && wd != 6
}

// NextTradingDay returns the smallest day strictly greater than d that
// satisfies IsTradingDay.
func NextTradingDay(d Day) Day {
	n := d + 1
	for !IsTradingDay(n) {
		n++
	}
	return n
}

// ExpirationDay returns the day reached by counting dte trading days
// forward from entry, with entry itself counted as day 0 of that count.
// entry need not itself be a trading day.
func ExpirationDay(entry Day, dte uint32) Day {
	d := entry
	remaining := dte
	for remaining > 0 {
		d = NextTradingDay(d)
		remaining--
	}
	return d
}

// DTE returns the number of trading days between now and exp, counting
// forward. It is 0 on the expiration day itself and undefined (reported
// as 0) if exp precedes now — callers are expected to only ask for DTE on
// still-live legs, where exp >= now always holds by construction.
func DTE(now, exp Day) uint32 {
	if exp <= now {
		return 0
	}
	var count uint32
	d := now
	for d < exp {
		d = NextTradingDay(d)
		count++
	}
	return count
}

// MatchMode governs how a candidate calendar day is snapped onto the
// nearest day a caller considers "available" (e.g. a destination roll day
// that must land on a trading day, or a DTE target window for the delta
// search in the strike selector).
type MatchMode int

const (
	// MatchNearest picks whichever available day is closest; ties favor
	// the earlier day.
	MatchNearest MatchMode = iota
	// MatchExact requires the candidate itself to be available.
	MatchExact
	// MatchLower picks the latest available day not after the candidate.
	MatchLower
	// MatchHigher picks the earliest available day not before the candidate.
	MatchHigher
)

// Snap selects, from a sorted slice of candidate days, the one matching
// mode relative to target. It returns ok=false if no day satisfies mode.
func Snap(target Day, available []Day, mode MatchMode) (Day, bool) {
	if len(available) == 0 {
		return 0, false
	}

	var exact, lower Day
	var haveExact, haveLower, haveHigher bool
	var higher Day

	for _, d := range available {
		if d == target {
			exact, haveExact = d, true
		}
		if d <= target {
			lower, haveLower = d, true
		}
		if d >= target && !haveHigher {
			higher, haveHigher = d, true
		}
	}

	switch mode {
	case MatchExact:
		return exact, haveExact
	case MatchLower:
		return lower, haveLower
	case MatchHigher:
		return higher, haveHigher
	default: // MatchNearest
		switch {
		case haveExact:
			return exact, true
		case haveLower && haveHigher:
			if target-lower <= higher-target {
				return lower, true
			}
			return higher, true
		case haveLower:
			return lower, true
		case haveHigher:
			return higher, true
		default:
			return 0, false
		}
	}
}
