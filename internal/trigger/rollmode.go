package trigger

// RollMode controls how a firing decision on one leg propagates to its
// sibling legs within a roll-mode group.
type RollMode int

const (
	Independent RollMode = iota
	Synchronized
	LeaderFollower
)

// Group couples a set of leg IDs under a RollMode. Leader is only
// meaningful for LeaderFollower and must be a member of Legs.
type Group struct {
	Mode   RollMode
	Legs   []string
	Leader string
}

// Couple takes the per-leg Decisions computed independently by Decide
// and applies group's RollMode, returning a (possibly expanded) decision
// per leg. Independent groups pass decisions through unchanged.
// Synchronized groups force every leg in the group to the firing
// decision of any leg that fired (first firing leg wins the reasons).
// LeaderFollower groups only propagate the leader's decision.
func Couple(group Group, decisions map[string]Decision) map[string]Decision {
	if group.Mode == Independent {
		return decisions
	}

	out := make(map[string]Decision, len(decisions))
	for leg, d := range decisions {
		out[leg] = d
	}

	switch group.Mode {
	case Synchronized:
		var forced Decision
		for _, leg := range group.Legs {
			if d, ok := decisions[leg]; ok && d.Fires && !d.Rejected {
				forced = d
				break
			}
		}
		if forced.Fires {
			for _, leg := range group.Legs {
				out[leg] = forced
			}
		}

	case LeaderFollower:
		leaderDecision, ok := decisions[group.Leader]
		if !ok || !leaderDecision.Fires {
			for _, leg := range group.Legs {
				out[leg] = Decision{}
			}
			return out
		}
		for _, leg := range group.Legs {
			out[leg] = leaderDecision
		}
	}

	return out
}
