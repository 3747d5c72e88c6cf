package trigger

import (
	"testing"

	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/stretchr/testify/assert"
)

func mkEvt(day calendar.Day, minute calendar.TimeOfDay) MarketEvent {
	return MarketEvent{Now: calendar.Timestamp{Day: day, Time: minute}}
}

func TestDteThresholdFires(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: DteThreshold, DTE: 5}}}
	d := Decide(LegState{DTE: 5}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)
	assert.Equal(t, []string{"dte_threshold"}, d.Reasons)

	d = Decide(LegState{DTE: 6}, cfg, mkEvt(0, 600))
	assert.False(t, d.Fires)
}

// ProfitTarget sign discipline: longs never trigger on a loss.
func TestProfitTargetSignDisciplineLong(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: ProfitTarget, Fraction: 0.5}}}
	// Long, debit paid 2.0, losing money: unrealized -1.0.
	d := Decide(LegState{IsShort: false, MaxDebit: 2.0, UnrealizedPnL: -1.0}, cfg, mkEvt(0, 600))
	assert.False(t, d.Fires)

	// Long, gained 1.5 against a 2.0 debit: 1.5 >= 0.5*2.0.
	d = Decide(LegState{IsShort: false, MaxDebit: 2.0, UnrealizedPnL: 1.5}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)
}

func TestProfitTargetShortUsesMaxCredit(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: ProfitTarget, Fraction: 0.5}}}
	d := Decide(LegState{IsShort: true, MaxCredit: 2.0, UnrealizedPnL: 1.0}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)
}

func TestStopLossSymmetric(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: StopLoss, Fraction: 2.0}}}
	d := Decide(LegState{IsShort: true, MaxCredit: 1.0, UnrealizedPnL: -2.5}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)

	d = Decide(LegState{IsShort: true, MaxCredit: 1.0, UnrealizedPnL: -1.5}, cfg, mkEvt(0, 600))
	assert.False(t, d.Fires)
}

func TestTimeOfDayRespectsOnePerDayGuard(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: TimeOfDay, WallClock: 600}}}
	d := Decide(LegState{RolledToday: false}, cfg, mkEvt(0, 700))
	assert.True(t, d.Fires)

	d = Decide(LegState{RolledToday: true}, cfg, mkEvt(0, 700))
	assert.False(t, d.Fires)
}

func TestPriceMoveUsesConfiguredReference(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: PriceMove, Points: 2.0, Reference: LastRoll}}}
	d := Decide(LegState{LastRollPrice: 75.0, CurrentPrice: 78.0}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)
}

func TestExpirationFiresOnlyOnExpirationDayAtOrAfterWallClock(t *testing.T) {
	cfg := Config{Triggers: []Trigger{{Kind: Expiration, WallClock: 870}}}
	evt := mkEvt(10, 900)
	evt.IsExpiration = true
	d := Decide(LegState{}, cfg, evt)
	assert.True(t, d.Fires)

	evt.IsExpiration = false
	d = Decide(LegState{}, cfg, evt)
	assert.False(t, d.Fires)
}

// First matching trigger wins, in declaration order.
func TestFirstMatchingTriggerWinsInDeclarationOrder(t *testing.T) {
	cfg := Config{Triggers: []Trigger{
		{Kind: DteThreshold, DTE: 10},
		{Kind: StopLoss, Fraction: 0.1},
	}}
	d := Decide(LegState{DTE: 5, IsShort: true, MaxCredit: 1.0, UnrealizedPnL: -5.0}, cfg, mkEvt(0, 600))
	assert.Equal(t, []string{"dte_threshold"}, d.Reasons)
}

// Cooldown: max rolls per day converts a firing trigger into a rejection.
func TestMaxRollsPerDayRejectsRoll(t *testing.T) {
	cfg := Config{
		Triggers:       []Trigger{{Kind: DteThreshold, DTE: 10}},
		MaxRollsPerDay: 1,
	}
	d := Decide(LegState{DTE: 5, RollsToday: 1}, cfg, mkEvt(0, 600))
	assert.True(t, d.Fires)
	assert.True(t, d.Rejected)
}

// Cooldown: min interval on the same day converts a firing trigger into
// a rejection; a different day always clears the guard.
func TestMinIntervalRejectsRollSameDay(t *testing.T) {
	cfg := Config{
		Triggers:    []Trigger{{Kind: DteThreshold, DTE: 10}},
		MinInterval: 120,
	}
	state := LegState{DTE: 5, HasRolled: true, LastRoll: calendar.Timestamp{Day: 0, Time: 600}}
	d := Decide(state, cfg, mkEvt(0, 650))
	assert.True(t, d.Rejected)

	d = Decide(state, cfg, mkEvt(1, 605))
	assert.False(t, d.Rejected)
}

func TestCoupleIndependentPassesThrough(t *testing.T) {
	decisions := map[string]Decision{"a": {Fires: true, Reasons: []string{"x"}}, "b": {}}
	out := Couple(Group{Mode: Independent, Legs: []string{"a", "b"}}, decisions)
	assert.Equal(t, decisions, out)
}

func TestCoupleSynchronizedForcesAllLegs(t *testing.T) {
	decisions := map[string]Decision{
		"a": {Fires: true, Reasons: []string{"dte_threshold"}},
		"b": {},
	}
	out := Couple(Group{Mode: Synchronized, Legs: []string{"a", "b"}}, decisions)
	assert.True(t, out["b"].Fires)
	assert.Equal(t, []string{"dte_threshold"}, out["b"].Reasons)
}

func TestCoupleLeaderFollowerOnlyLeaderDrives(t *testing.T) {
	decisions := map[string]Decision{
		"leader":   {},
		"follower": {Fires: true, Reasons: []string{"stop_loss"}},
	}
	out := Couple(Group{Mode: LeaderFollower, Legs: []string{"leader", "follower"}, Leader: "leader"}, decisions)
	assert.False(t, out["follower"].Fires)

	decisions["leader"] = Decision{Fires: true, Reasons: []string{"dte_threshold"}}
	out = Couple(Group{Mode: LeaderFollower, Legs: []string{"leader", "follower"}, Leader: "leader"}, decisions)
	assert.True(t, out["follower"].Fires)
	assert.Equal(t, []string{"dte_threshold"}, out["follower"].Reasons)
}
