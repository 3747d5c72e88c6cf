package kernel

import (
	"context"
	"testing"

	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/eventlog"
	"github.com/contactkeval/oilsim/internal/priceproc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortStrangle() *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{
			Days: 60, InitialPrice: 75, Volatility: 0.3, Seed: 1, ContractMultiplier: 1000,
		},
		Strategy: config.StrategyConfig{
			Type: "strangle",
			Legs: []config.LegConfig{
				{
					ID: "call1", Type: "call", Side: "short", EntryDTE: 45,
					EntryTime: "09:30", RollTime: "09:30",
					StrikeRule:     config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollTriggers:   []config.TriggerConfig{{Kind: "dte_threshold", DTE: 10}},
					RollDestDTE:    45,
					RollStrikeRule: config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollMode:       "independent",
					MaxRollsPerDay: 1,
				},
				{
					ID: "put1", Type: "put", Side: "short", EntryDTE: 45,
					EntryTime: "09:30", RollTime: "09:30",
					StrikeRule:     config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollTriggers:   []config.TriggerConfig{{Kind: "dte_threshold", DTE: 10}},
					RollDestDTE:    45,
					RollStrikeRule: config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollMode:       "independent",
					MaxRollsPerDay: 1,
				},
			},
		},
		StrikeConfig: config.StrikeGlobalConfig{TickSize: 0.5, RollType: "recenter"},
		Product: config.ProductConfig{
			Symbol: "CL", TickSize: 0.01, PointValue: 1000,
			TradingOpen: "09:00", TradingClose: "14:30", OptionExpiry: "14:30",
		},
	}
}

func TestRunProducesWellFormedEventLog(t *testing.T) {
	cfg := shortStrangle()
	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)

	res, err := k.Run(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, uint64(42), res.Seed)
	assert.NotEmpty(t, res.Events)

	for i, evt := range res.Events {
		assert.Equal(t, uint64(i+1), evt.ID)
	}

	// Every leg that opens eventually closes.
	opened := map[string]bool{}
	closed := map[string]bool{}
	for _, evt := range res.Events {
		switch evt.Kind {
		case eventlog.PositionOpened:
			opened[evt.LegID] = true
		case eventlog.PositionClosed:
			closed[evt.LegID] = true
		}
	}
	for leg := range opened {
		assert.True(t, closed[leg], "leg %s opened but never closed", leg)
	}
}

func TestRunIsDeterministicForAFixedSeed(t *testing.T) {
	cfg := shortStrangle()

	run := func() []eventlog.Event {
		log := eventlog.NewMemoryStore()
		k := New(cfg, log, nil, nil)
		res, err := k.Run(context.Background(), 7)
		require.NoError(t, err)
		return res.Events
	}

	a := run()
	b := run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Kind, b[i].Kind)
		assert.Equal(t, a[i].Timestamp, b[i].Timestamp)
		assert.Equal(t, a[i].LegID, b[i].LegID)
	}
}

func TestRunAcceptsMeanRevertingPriceModel(t *testing.T) {
	cfg := shortStrangle()
	cfg.Simulation.PriceModel = "ou"
	cfg.Simulation.MeanReversionRate = 1.5
	cfg.Simulation.MeanLevel = 75

	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	res, err := k.Run(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Events)
}

func TestGeneratorOfDefaultsToGBM(t *testing.T) {
	sim := config.SimulationConfig{InitialPrice: 75, Volatility: 0.3, Drift: 0.05}
	gen := generatorOf(sim)
	_, ok := gen.(*priceproc.GBMGenerator)
	assert.True(t, ok)
}

func TestGeneratorOfSchwartz1F(t *testing.T) {
	sim := config.SimulationConfig{InitialPrice: 75, Volatility: 0.3, PriceModel: "schwartz1f", MeanReversionRate: 2}
	gen := generatorOf(sim)
	_, ok := gen.(*priceproc.Schwartz1FGenerator)
	assert.True(t, ok)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := shortStrangle()
	cfg.Simulation.Volatility = 0

	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	_, err := k.Run(context.Background(), 1)
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestRunLogSatisfiesInvariants(t *testing.T) {
	cfg := shortStrangle()
	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	_, err := k.Run(context.Background(), 99)
	require.NoError(t, err)

	assert.NoError(t, checkInvariants(log.Iter()))
}

func TestCheckInvariantsCatchesOutOfOrderIDs(t *testing.T) {
	events := []eventlog.Event{
		{ID: 2, LegID: "call1", Kind: eventlog.PositionOpened, Opened: &eventlog.OpenedPayload{}},
		{ID: 1, LegID: "call1", Kind: eventlog.PositionClosed, Closed: &eventlog.ClosedPayload{}},
	}
	err := checkInvariants(events)
	require.Error(t, err)
	var iv *InvariantViolation
	assert.ErrorAs(t, err, &iv)
	assert.Equal(t, "event_id_monotonic", iv.Invariant)
}

// TestRunClosesAtExpirationOnFinalDay exercises the one-day horizon:
// priceproc.Generate returns Days+1 prices, so a leg entered on day 0 with
// entry_dte=1 must still be walked to day 1 and closed there, at the
// product's option_expiry time, rather than force-closed a day early at
// its entry price.
func TestRunClosesAtExpirationOnFinalDay(t *testing.T) {
	cfg := &config.Config{
		Simulation: config.SimulationConfig{
			Days: 1, InitialPrice: 75, Volatility: 0.3, Seed: 1, ContractMultiplier: 1000,
		},
		Strategy: config.StrategyConfig{
			Type: "strangle",
			Legs: []config.LegConfig{
				{
					ID: "call1", Type: "call", Side: "short", EntryDTE: 1,
					EntryTime: "09:30", RollTime: "09:30",
					StrikeRule:     config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollDestDTE:    0,
					RollStrikeRule: config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollMode:       "independent",
				},
			},
		},
		StrikeConfig: config.StrikeGlobalConfig{TickSize: 0.5, RollType: "recenter"},
		Product: config.ProductConfig{
			Symbol: "CL", TickSize: 0.01, PointValue: 1000,
			TradingOpen: "09:00", TradingClose: "14:30", OptionExpiry: "14:30",
		},
	}

	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	res, err := k.Run(context.Background(), 42)
	require.NoError(t, err)

	var closed *eventlog.Event
	for i, evt := range res.Events {
		if evt.Kind == eventlog.PositionClosed {
			closed = &res.Events[i]
		}
	}
	require.NotNil(t, closed, "leg never closed")
	assert.Equal(t, "expiration", closed.Closed.Reason)
	assert.Equal(t, uint32(1), closed.Timestamp.Day)
}

// TestRunRollsInsteadOfClosingOnExpirationDay asserts that a leg with a
// fired, unrejected roll decision on its expiration day rolls rather than
// force-closing: the end-of-day forced-expiration pass only catches legs
// still open with zero DTE after every intraday instant has had its turn.
func TestRunRollsInsteadOfClosingOnExpirationDay(t *testing.T) {
	cfg := &config.Config{
		Simulation: config.SimulationConfig{
			Days: 10, InitialPrice: 75, Volatility: 0.3, Seed: 1, ContractMultiplier: 1000,
		},
		Strategy: config.StrategyConfig{
			Type: "strangle",
			Legs: []config.LegConfig{
				{
					ID: "call1", Type: "call", Side: "short", EntryDTE: 2,
					EntryTime: "09:30", RollTime: "09:30",
					StrikeRule:     config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollTriggers:   []config.TriggerConfig{{Kind: "dte_threshold", DTE: 0}},
					RollDestDTE:    2,
					RollStrikeRule: config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollMode:       "independent",
					MaxRollsPerDay: 5,
				},
			},
		},
		StrikeConfig: config.StrikeGlobalConfig{TickSize: 0.5, RollType: "recenter"},
		Product: config.ProductConfig{
			Symbol: "CL", TickSize: 0.01, PointValue: 1000,
			TradingOpen: "09:00", TradingClose: "14:30", OptionExpiry: "14:30",
		},
	}

	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	res, err := k.Run(context.Background(), 42)
	require.NoError(t, err)

	var rolled, closedAtExpiration int
	for _, evt := range res.Events {
		switch evt.Kind {
		case eventlog.LegRolled:
			rolled++
		case eventlog.PositionClosed:
			if evt.Closed.Reason == "expiration" {
				closedAtExpiration++
			}
		}
	}
	assert.Greater(t, rolled, 0, "expected at least one roll on the expiration day")
	assert.Equal(t, 0, closedAtExpiration, "a fired roll trigger must roll, not force-close, on the expiration day")
}

// TestRunEnforcesSameDayMinIntervalCooldown gives a leg a second intraday
// check instant 15 minutes after its roll_time, with a trigger that fires
// on every check and a min_interval_minutes cooldown wider than the gap
// between the two instants. The first check should roll; the second,
// same-day check should be rejected with a min_interval_cooldown reason —
// this is only reachable because the day is stepped through more than one
// wall-clock instant.
func TestRunEnforcesSameDayMinIntervalCooldown(t *testing.T) {
	cfg := &config.Config{
		Simulation: config.SimulationConfig{
			Days: 5, InitialPrice: 75, Volatility: 0.3, Seed: 1, ContractMultiplier: 1000,
		},
		Strategy: config.StrategyConfig{
			Type: "strangle",
			Legs: []config.LegConfig{
				{
					ID: "call1", Type: "call", Side: "short", EntryDTE: 45,
					EntryTime: "09:30", RollTime: "09:30",
					CheckTimes:     []string{"09:45"},
					StrikeRule:     config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollTriggers:   []config.TriggerConfig{{Kind: "dte_threshold", DTE: 100}},
					RollDestDTE:    45,
					RollStrikeRule: config.StrikeRuleConfig{Kind: "otm_points", Points: 5},
					RollMode:       "independent",
					MaxRollsPerDay: 5,
					MinInterval:    30,
				},
			},
		},
		StrikeConfig: config.StrikeGlobalConfig{TickSize: 0.5, RollType: "recenter"},
		Product: config.ProductConfig{
			Symbol: "CL", TickSize: 0.01, PointValue: 1000,
			TradingOpen: "09:00", TradingClose: "14:30", OptionExpiry: "14:30",
		},
	}

	log := eventlog.NewMemoryStore()
	k := New(cfg, log, nil, nil)
	res, err := k.Run(context.Background(), 42)
	require.NoError(t, err)

	var rejectedCooldown bool
	for _, evt := range res.Events {
		if evt.Kind == eventlog.RollRejected {
			for _, reason := range evt.Rejected.Reasons {
				if reason == "min_interval_cooldown" {
					rejectedCooldown = true
				}
			}
		}
	}
	assert.True(t, rejectedCooldown, "expected a same-day min_interval_cooldown rejection")
}

func TestCheckInvariantsCatchesCloseWithoutOpen(t *testing.T) {
	events := []eventlog.Event{
		{ID: 1, LegID: "call1", Kind: eventlog.PositionClosed, Closed: &eventlog.ClosedPayload{}},
	}
	err := checkInvariants(events)
	require.Error(t, err)
	var iv *InvariantViolation
	assert.ErrorAs(t, err, &iv)
	assert.Equal(t, "leg_lifecycle", iv.Invariant)
}
