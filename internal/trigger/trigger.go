// Package trigger implements the pure roll/exit decision function: given
// a leg's live state, its configuration, and the current market event,
// decide whether to roll or close the leg, and enforce the cooldowns
// that turn a would-be roll into a RollRejected event instead of a state
// transition.
package trigger

import (
	"github.com/contactkeval/oilsim/internal/calendar"
)

// Kind tags which parameters a Trigger carries.
type Kind int

const (
	DteThreshold Kind = iota
	TimeOfDay
	ProfitTarget
	StopLoss
	PriceMove
	DeltaThreshold
	Expiration
	Manual
)

func (k Kind) String() string {
	switch k {
	case DteThreshold:
		return "dte_threshold"
	case TimeOfDay:
		return "time_of_day"
	case ProfitTarget:
		return "profit_target"
	case StopLoss:
		return "stop_loss"
	case PriceMove:
		return "price_move"
	case DeltaThreshold:
		return "delta_threshold"
	case Expiration:
		return "expiration"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// PriceReference names the reference point a PriceMove trigger measures
// movement from.
type PriceReference int

const (
	Entry PriceReference = iota
	LastRoll
	DailyOpen
)

// Trigger is a single evaluable condition, tagged by Kind with only the
// fields relevant to that Kind populated. This mirrors eventlog.Event's
// tag-plus-payload shape rather than an interface hierarchy, per the
// module's sum-type convention.
type Trigger struct {
	Kind Kind

	DTE       uint32             // DteThreshold
	WallClock calendar.TimeOfDay // TimeOfDay, Expiration
	Fraction  float64            // ProfitTarget, StopLoss (of max_credit/max_debit)
	Points    float64            // PriceMove
	Reference PriceReference     // PriceMove
	Delta     float64            // DeltaThreshold
}

// LegState is the subset of position.State the trigger engine needs to
// decide, kept separate from position.State so this package has no
// import-cycle dependency on eventlog/contract beyond calendar.
type LegState struct {
	DTE            uint32
	RolledToday    bool
	RollsToday     int
	LastRoll       calendar.Timestamp
	HasRolled      bool
	IsShort        bool
	MaxCredit      float64
	MaxDebit       float64
	UnrealizedPnL  float64
	EntryPrice     float64
	LastRollPrice  float64
	DailyOpenPrice float64
	CurrentPrice   float64
	Delta          float64
}

// MarketEvent is the instant the engine decides against.
type MarketEvent struct {
	Now          calendar.Timestamp
	IsExpiration bool
}

// Config carries the per-leg roll policy: ordered triggers plus cooldowns.
type Config struct {
	Triggers       []Trigger
	MaxRollsPerDay int
	MinInterval    int // minutes, compared against Now.Time - LastRoll.Time on the same day; a roll on a different day always clears the interval guard
}

// Decision is the pure output of Decide: whether a roll/close fires, and
// if a proposed roll was instead blocked by cooldowns.
type Decision struct {
	Fires    bool
	Reasons  []string
	Rejected bool // true iff Fires was true but cooldowns blocked it
}

// Decide evaluates cfg.Triggers against state and evt in declaration
// order and returns the first match. If the match would be a roll and
// cooldowns block it, Decision.Rejected is set instead of propagating a
// state transition — callers must translate a Rejected decision into a
// RollRejected event, not a PositionClosed/LegRolled one.
func Decide(state LegState, cfg Config, evt MarketEvent) Decision {
	for _, t := range cfg.Triggers {
		if fires, reason := evaluate(t, state, evt); fires {
			d := Decision{Fires: true, Reasons: []string{reason}}
			if why, isBlocked := blocked(state, cfg, evt); isBlocked {
				d.Rejected = true
				d.Reasons = append(d.Reasons, why)
			}
			return d
		}
	}
	return Decision{}
}

// blocked reports whether a firing decision is cooldown-blocked, and if
// so, which cooldown caused it — max_rolls_per_day trumps min_interval
// when both would apply.
func blocked(state LegState, cfg Config, evt MarketEvent) (string, bool) {
	if cfg.MaxRollsPerDay > 0 && state.RollsToday >= cfg.MaxRollsPerDay {
		return "max_rolls_per_day", true
	}
	if cfg.MinInterval > 0 && state.HasRolled && state.LastRoll.Day == evt.Now.Day {
		elapsed := int(evt.Now.Time) - int(state.LastRoll.Time)
		if elapsed < cfg.MinInterval {
			return "min_interval_cooldown", true
		}
	}
	return "", false
}

func evaluate(t Trigger, s LegState, evt MarketEvent) (bool, string) {
	switch t.Kind {
	case DteThreshold:
		return s.DTE <= t.DTE, t.Kind.String()

	case TimeOfDay:
		return evt.Now.Time >= t.WallClock && !s.RolledToday, t.Kind.String()

	case ProfitTarget:
		threshold := t.Fraction * s.MaxDebit
		if s.IsShort {
			threshold = t.Fraction * s.MaxCredit
		}
		return s.UnrealizedPnL >= threshold, t.Kind.String()

	case StopLoss:
		threshold := t.Fraction * s.MaxDebit
		if s.IsShort {
			threshold = t.Fraction * s.MaxCredit
		}
		return s.UnrealizedPnL <= -threshold, t.Kind.String()

	case PriceMove:
		ref := s.EntryPrice
		switch t.Reference {
		case LastRoll:
			ref = s.LastRollPrice
		case DailyOpen:
			ref = s.DailyOpenPrice
		}
		return abs(s.CurrentPrice-ref) >= t.Points, t.Kind.String()

	case DeltaThreshold:
		return abs(s.Delta) >= t.Delta, t.Kind.String()

	case Expiration:
		return evt.IsExpiration && evt.Now.Time >= t.WallClock, t.Kind.String()

	case Manual:
		return false, t.Kind.String()

	default:
		return false, "unknown"
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
