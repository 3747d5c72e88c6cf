package kernel

import (
	"github.com/contactkeval/oilsim/internal/accounting"
	"github.com/contactkeval/oilsim/internal/eventlog"
)

// Fingerprint identifies the configuration a Result was produced from,
// so Monte Carlo results can be grouped without relying on seed
// uniqueness alone.
type Fingerprint string

// Result is the outcome of a single simulation run: its seed, its
// configuration fingerprint, the full event log, and the accounting
// fold over it.
type Result struct {
	Seed        uint64
	Fingerprint Fingerprint
	Events      []eventlog.Event
	Summary     accounting.Summary
}
