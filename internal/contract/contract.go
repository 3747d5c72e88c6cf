// Package contract defines the immutable, value-typed Option Contract
// shared across the trigger engine, position state, event log and kernel.
package contract

import "github.com/contactkeval/oilsim/internal/calendar"

// OptionType distinguishes calls from puts.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	if t == Call {
		return "call"
	}
	return "put"
}

// Side distinguishes a long (bought) position from a short (sold) one.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Long {
		return "long"
	}
	return "short"
}

// CreditSign returns +1 for Short and -1 for Long: the sign a premium
// carries as a cash flow at entry. A short receives a credit (+), a
// long pays a debit (-); the same sign flips the exit-side premium back
// out when a position closes or rolls.
func (s Side) CreditSign() float64 {
	if s == Short {
		return 1
	}
	return -1
}

// Contract is an immutable option contract: (type, strike, expiration,
// side). Two contracts are equal iff every field is equal.
type Contract struct {
	Type       OptionType
	Strike     float64
	Expiration calendar.Day
	Side       Side
}
