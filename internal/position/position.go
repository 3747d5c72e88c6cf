// Package position holds per-leg live state, derived strictly by folding
// eventlog.Event values through Apply. Nothing else is allowed to mutate
// a State — that keeps the event log the single source of truth and
// makes replaying it reconstruct identical state by construction.
package position

import (
	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/contract"
	"github.com/contactkeval/oilsim/internal/eventlog"
)

// State is the derived, per-leg live position record.
type State struct {
	LegID string

	Open     bool
	Contract contract.Contract

	EntryTimestamp calendar.Timestamp
	EntryPremium   float64

	RealizedPnL float64
	Commissions float64

	RollCount   int
	LastRoll    calendar.Timestamp
	HasRolled   bool // whether LastRoll is meaningful
	RolledToday bool

	// MaxCredit/MaxDebit cache the entry premium's magnitude for
	// ProfitTarget/StopLoss trigger evaluation: for a short leg the
	// credit received is MaxCredit; for a long leg the debit paid is
	// MaxDebit.
	MaxCredit float64
	MaxDebit  float64

	CurrentMark   float64
	UnrealizedPnL float64
}

// New returns a freshly retired (never-opened) State for legID.
func New(legID string) *State {
	return &State{LegID: legID}
}

// Apply mutates s according to evt. evt.LegID must equal s.LegID; callers
// are expected to route events to the right State (the kernel keeps a
// map keyed by leg ID).
func Apply(s *State, evt eventlog.Event) {
	switch evt.Kind {
	case eventlog.PositionOpened:
		applyOpened(s, evt)
	case eventlog.LegRolled:
		applyRolled(s, evt)
	case eventlog.PositionClosed:
		applyClosed(s, evt)
	case eventlog.MarkToMarket:
		applyMark(s, evt)
	case eventlog.RollRejected:
		// No state transition; rejections are audit-only.
	}
}

func applyOpened(s *State, evt eventlog.Event) {
	p := evt.Opened
	s.Open = true
	s.Contract = p.Contract
	s.EntryTimestamp = evt.Timestamp
	s.EntryPremium = p.Premium
	s.RollCount = 0
	s.HasRolled = false
	s.RolledToday = false
	s.CurrentMark = p.Premium
	s.UnrealizedPnL = 0

	if p.Contract.Side == contract.Short {
		s.MaxCredit = p.Premium
		s.MaxDebit = 0
	} else {
		s.MaxDebit = p.Premium
		s.MaxCredit = 0
	}
}

// realize applies the signed cash flow of closing `closedSide` out of a
// position whose entry premium was entryPremium, at exitPremium, charging
// commission. Short: credit at entry (+entryPremium), debit at exit
// (-exitPremium). Long: debit at entry (-entryPremium), credit at exit
// (+exitPremium). Net realized P&L is the exit cash flow plus the entry
// cash flow already implicitly captured at open time — since entry
// premium itself does not touch RealizedPnL until the position closes,
// realize adds the whole round-trip here.
func realize(entrySide contract.Side, entryPremium, exitPremium, commission float64) float64 {
	sign := entrySide.CreditSign()
	// Short: entry credit (+entryPremium), exit debit (-exitPremium) -> entryPremium - exitPremium.
	// Long: entry debit (-entryPremium), exit credit (+exitPremium) -> exitPremium - entryPremium.
	return sign*entryPremium - sign*exitPremium - commission
}

func applyRolled(s *State, evt eventlog.Event) {
	p := evt.Rolled
	pnl := realize(p.OldContract.Side, s.EntryPremium, p.ExitPremium, p.Commission)
	s.RealizedPnL += pnl
	s.Commissions += p.Commission

	s.Contract = p.NewContract
	s.EntryTimestamp = evt.Timestamp
	s.EntryPremium = p.EntryPremium
	s.RollCount++
	s.LastRoll = evt.Timestamp
	s.HasRolled = true
	s.RolledToday = true
	s.CurrentMark = p.EntryPremium
	s.UnrealizedPnL = 0

	if p.NewContract.Side == contract.Short {
		s.MaxCredit = p.EntryPremium
		s.MaxDebit = 0
	} else {
		s.MaxDebit = p.EntryPremium
		s.MaxCredit = 0
	}
}

func applyClosed(s *State, evt eventlog.Event) {
	p := evt.Closed
	pnl := realize(p.Contract.Side, s.EntryPremium, p.Premium, p.Commission)
	s.RealizedPnL += pnl
	s.Commissions += p.Commission
	s.Open = false
	s.CurrentMark = p.Premium
	s.UnrealizedPnL = 0
}

func applyMark(s *State, evt eventlog.Event) {
	p := evt.Marked
	s.CurrentMark = p.Mark
	s.UnrealizedPnL = p.UnrealizedPnL
}

// ClearDailyFlag resets the once-per-day roll guard at the day boundary.
// The kernel calls this for every open leg after processing a trading
// day's roll decisions, independent of whether the leg actually rolled.
func ClearDailyFlag(s *State) {
	s.RolledToday = false
}

// Replay reconstructs a fresh State by folding every event for legID in
// log, in order, from the empty initial state. The result must be
// byte-equivalent to the live-run state.
func Replay(log eventlog.Store, legID string) *State {
	s := New(legID)
	for _, evt := range log.Filter(func(e eventlog.Event) bool { return e.LegID == legID }) {
		Apply(s, evt)
	}
	return s
}
