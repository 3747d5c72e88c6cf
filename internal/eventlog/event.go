// Package eventlog defines the append-only, totally ordered event log that
// is the single source of truth for a simulation: every position open,
// roll, close, rejection and mark-to-market is recorded here, and all
// downstream analytics (internal/accounting) are pure folds over it.
package eventlog

import (
	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/contract"
)

// Kind tags which payload an Event carries.
type Kind int

const (
	PositionOpened Kind = iota
	PositionClosed
	LegRolled
	RollRejected
	MarkToMarket
)

func (k Kind) String() string {
	switch k {
	case PositionOpened:
		return "position_opened"
	case PositionClosed:
		return "position_closed"
	case LegRolled:
		return "leg_rolled"
	case RollRejected:
		return "roll_rejected"
	case MarkToMarket:
		return "mark_to_market"
	default:
		return "unknown"
	}
}

// OpenedPayload is carried by a PositionOpened event.
type OpenedPayload struct {
	Contract contract.Contract
	Premium  float64 // raw market price paid/received, always >= 0
}

// ClosedPayload is carried by a PositionClosed event.
type ClosedPayload struct {
	Contract   contract.Contract
	Premium    float64 // raw market price paid/received to close
	Commission float64
	Reason     string // e.g. "expiration", "forced_close", trigger reasons
}

// RolledPayload is carried by a LegRolled event: an atomic close-of-old
// plus open-of-new pair, carrying both premiums and the triggering
// reasons.
type RolledPayload struct {
	OldContract  contract.Contract
	NewContract  contract.Contract
	ExitPremium  float64
	EntryPremium float64
	Commission   float64
	Reasons      []string
}

// RejectedPayload is carried by a RollRejected event: an attempted roll
// that was blocked by a cooldown or precondition. It is first-class, not
// an error.
type RejectedPayload struct {
	Reasons []string
}

// MarkPayload is carried by a periodic MarkToMarket event.
type MarkPayload struct {
	Underlying    float64
	Mark          float64
	UnrealizedPnL float64
}

// Event is the immutable, totally ordered log entry. Only the field
// matching Kind is populated; the others are the zero value.
type Event struct {
	ID        uint64
	Timestamp calendar.Timestamp
	LegID     string
	Kind      Kind

	Opened   *OpenedPayload   `json:",omitempty"`
	Closed   *ClosedPayload   `json:",omitempty"`
	Rolled   *RolledPayload   `json:",omitempty"`
	Rejected *RejectedPayload `json:",omitempty"`
	Marked   *MarkPayload     `json:",omitempty"`
}
