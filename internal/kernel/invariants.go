package kernel

import "github.com/contactkeval/oilsim/internal/eventlog"

// checkInvariants re-derives, from the raw event log alone, the
// structural guarantees a correct run must satisfy: strictly increasing
// event IDs, non-decreasing timestamps, and a per-leg lifecycle that
// never opens a leg that is already open or closes/rolls one that
// isn't. It runs once at the end of a simulation, after the kernel has
// already finished mutating state, as a last line of defense against a
// logic error upstream producing a log that looks fine locally but is
// globally inconsistent.
func checkInvariants(events []eventlog.Event) error {
	var lastID uint64
	var lastTS *eventlog.Event
	open := make(map[string]bool)

	for i, evt := range events {
		if i > 0 && evt.ID <= lastID {
			return &InvariantViolation{
				Invariant: "event_id_monotonic",
				Detail:    "event IDs must strictly increase",
			}
		}
		lastID = evt.ID

		if lastTS != nil && evt.Timestamp.Compare(lastTS.Timestamp) < 0 {
			return &InvariantViolation{
				Invariant: "timestamp_nondecreasing",
				Detail:    "event timestamps must not go backwards",
			}
		}
		lastTS = &events[i]

		switch evt.Kind {
		case eventlog.PositionOpened:
			if open[evt.LegID] {
				return &InvariantViolation{
					Invariant: "leg_lifecycle",
					Detail:    "leg " + evt.LegID + " opened while already open",
				}
			}
			open[evt.LegID] = true
		case eventlog.PositionClosed:
			if !open[evt.LegID] {
				return &InvariantViolation{
					Invariant: "leg_lifecycle",
					Detail:    "leg " + evt.LegID + " closed while not open",
				}
			}
			open[evt.LegID] = false
		case eventlog.LegRolled:
			if !open[evt.LegID] {
				return &InvariantViolation{
					Invariant: "leg_lifecycle",
					Detail:    "leg " + evt.LegID + " rolled while not open",
				}
			}
		case eventlog.MarkToMarket:
			if !open[evt.LegID] {
				return &InvariantViolation{
					Invariant: "leg_lifecycle",
					Detail:    "leg " + evt.LegID + " marked while not open",
				}
			}
		}
	}

	return nil
}
