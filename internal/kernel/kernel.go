// Package kernel implements the discrete-event simulation loop: it steps
// the trading calendar, advances the price process, marks live legs,
// evaluates the trigger engine, and executes the resulting roll/close
// actions by appending events and mutating position state.
//
// A single run is strictly single-threaded and deterministic:
// run(seed, config) is a mathematical function. context.Context is
// threaded through only for cooperative cancellation between days, never
// awaited mid-step.
package kernel

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/contactkeval/oilsim/internal/accounting"
	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/contract"
	"github.com/contactkeval/oilsim/internal/eventlog"
	"github.com/contactkeval/oilsim/internal/logger"
	"github.com/contactkeval/oilsim/internal/position"
	"github.com/contactkeval/oilsim/internal/priceproc"
	"github.com/contactkeval/oilsim/internal/pricing"
	"github.com/contactkeval/oilsim/internal/strike"
	"github.com/contactkeval/oilsim/internal/trigger"
)

// legRuntime bundles one leg's static configuration with its live state
// for the duration of a run.
type legRuntime struct {
	id               string
	optType          contract.OptionType
	side             contract.Side
	entryDTE         uint32
	entryTime        calendar.TimeOfDay
	rollTime         calendar.TimeOfDay
	entryRule        strike.Rule
	rollTriggers     []trigger.Trigger
	rollDestDTE      uint32
	rollStrikeRule   strike.Rule
	rollMode         trigger.RollMode
	rollGroup        string
	rollLeader       bool
	rollDestRecenter bool
	minInterval      int
	maxRollsPerDay   int
	// checkTimes is the sorted, deduped set of intraday wall-clock
	// instants at which this leg's roll/close decision is evaluated.
	// Always includes rollTime even if the config's check_times list
	// doesn't repeat it; a leg with more than one instant lets a
	// same-day MinInterval cooldown actually reject a second roll.
	checkTimes []calendar.TimeOfDay

	state          *position.State
	rollsToday     int
	lastRollDay    calendar.Day
	dailyOpenPrice float64
	entryPrice     float64
	lastRollPrice  float64
}

func (l *legRuntime) checksAt(t calendar.TimeOfDay) bool {
	for _, c := range l.checkTimes {
		if c == t {
			return true
		}
	}
	return false
}

// Kernel executes one simulation run against a validated configuration.
type Kernel struct {
	cfg *config.Config
	log eventlog.Store
	lg  *logger.Logger
	m   *Metrics
}

// New constructs a Kernel. log must be empty; lg and m may be nil
// (logger.Nop()/no metrics are used in that case).
func New(cfg *config.Config, log eventlog.Store, lg *logger.Logger, m *Metrics) *Kernel {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Kernel{cfg: cfg, log: log, lg: lg, m: m}
}

// Run executes a full simulation for seed and returns the Result. It
// returns a *ConfigError if cfg fails validation, or a *NumericalError if
// the price process or pricer produces a non-finite value; the event log
// captured before the failure remains in k.log for post-mortem.
func (k *Kernel) Run(ctx context.Context, seed uint64) (*Result, error) {
	if err := config.Validate(k.cfg); err != nil {
		return nil, &ConfigError{Field: "config", Err: err}
	}

	legs, err := k.buildLegs()
	if err != nil {
		return nil, &ConfigError{Field: "strategy.legs", Err: err}
	}

	optionExpiry, err := calendar.ParseTimeOfDay(k.cfg.Product.OptionExpiry)
	if err != nil {
		return nil, &ConfigError{Field: "product.option_expiry", Err: err}
	}

	sim := k.cfg.Simulation
	impliedVol := impliedVolOf(sim)
	gen := generatorOf(sim)
	rng := priceproc.NewRNG(int64(seed))
	prices := priceproc.Generate(gen, sim.InitialPrice, int(sim.Days), rng)

	entryDay := calendar.Day(0)
	if !calendar.IsTradingDay(entryDay) {
		entryDay = calendar.NextTradingDay(entryDay)
	}

	if err := k.openAll(legs, entryDay, prices[entryDay], impliedVol); err != nil {
		return nil, err
	}

	instants := checkInstantsOf(legs)

	// The loop runs through Day(sim.Days) inclusive: priceproc.Generate
	// returns sim.Days+1 prices (indices 0..sim.Days), and a leg entered
	// on day 0 with a short DTE must still be walked to its expiration
	// day to be valued and closed at intrinsic there, rather than being
	// force-closed a day early at its entry price.
	lastTradingDay := entryDay
	for d := calendar.Day(0); d <= calendar.Day(sim.Days); d++ {
		select {
		case <-ctx.Done():
			return k.finish(seed, legs)
		default:
		}

		if !calendar.IsTradingDay(d) {
			continue
		}
		lastTradingDay = d
		F := prices[d]

		for _, leg := range legs {
			if leg.state.Open {
				leg.dailyOpenPrice = F
			}
		}

		if d == entryDay {
			continue // already opened above
		}

		if err := k.processDay(legs, d, instants, optionExpiry, F, impliedVol); err != nil {
			return nil, err
		}
	}

	k.closeRemaining(legs, lastTradingDay, optionExpiry, prices[lastTradingDay], impliedVol, "forced_close")

	return k.finish(seed, legs)
}

func (k *Kernel) buildLegs() ([]*legRuntime, error) {
	legs := make([]*legRuntime, 0, len(k.cfg.Strategy.Legs))
	for _, lc := range k.cfg.Strategy.Legs {
		optType := optionTypeOf(lc.Type)
		entryRule, err := strikeRuleOf(lc.StrikeRule, optType)
		if err != nil {
			return nil, err
		}
		rollStrikeRule, err := strikeRuleOf(lc.RollStrikeRule, optType)
		if err != nil {
			return nil, err
		}
		triggers, err := triggersOf(lc.RollTriggers)
		if err != nil {
			return nil, err
		}
		entryTime, err := calendar.ParseTimeOfDay(lc.EntryTime)
		if err != nil {
			return nil, err
		}
		rollTime, err := calendar.ParseTimeOfDay(lc.RollTime)
		if err != nil {
			return nil, err
		}

		checkTimes := []calendar.TimeOfDay{rollTime}
		for _, s := range lc.CheckTimes {
			t, err := calendar.ParseTimeOfDay(s)
			if err != nil {
				return nil, err
			}
			checkTimes = append(checkTimes, t)
		}
		checkTimes = dedupeSortTimes(checkTimes)

		legs = append(legs, &legRuntime{
			id:               lc.ID,
			optType:          optType,
			side:             sideOf(lc.Side),
			entryDTE:         lc.EntryDTE,
			entryTime:        entryTime,
			rollTime:         rollTime,
			entryRule:        entryRule,
			rollTriggers:     triggers,
			rollDestDTE:      lc.RollDestDTE,
			rollStrikeRule:   rollStrikeRule,
			rollMode:         rollModeOf(lc.RollMode),
			rollGroup:        lc.RollGroup,
			rollLeader:       lc.RollLeader,
			rollDestRecenter: lc.RollDestMode != "same_strikes",
			minInterval:      lc.MinInterval,
			maxRollsPerDay:   lc.MaxRollsPerDay,
			checkTimes:       checkTimes,
			state:            position.New(lc.ID),
		})
	}
	return legs, nil
}

// dedupeSortTimes returns ts sorted ascending with duplicates removed.
func dedupeSortTimes(ts []calendar.TimeOfDay) []calendar.TimeOfDay {
	seen := make(map[calendar.TimeOfDay]bool, len(ts))
	out := make([]calendar.TimeOfDay, 0, len(ts))
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// checkInstantsOf returns the sorted, deduped union of every leg's
// checkTimes, the set of wall-clock instants a trading day is stepped
// through.
func checkInstantsOf(legs []*legRuntime) []calendar.TimeOfDay {
	var all []calendar.TimeOfDay
	for _, leg := range legs {
		all = append(all, leg.checkTimes...)
	}
	return dedupeSortTimes(all)
}

func (k *Kernel) openAll(legs []*legRuntime, day calendar.Day, F, impliedVol float64) error {
	for _, leg := range legs {
		mkt := strike.Market{Underlying: F, TickSize: k.cfg.StrikeConfig.TickSize}
		K, err := strike.Resolve(leg.entryRule, mkt)
		if err != nil {
			return &ConfigError{Field: "strategy.legs." + leg.id + ".strike_rule", Err: err}
		}

		expiration := calendar.ExpirationDay(day, leg.entryDTE)
		dte := calendar.DTE(day, expiration)
		if err := assert("entry_dte_exact", dte == leg.entryDTE, "leg %s: dte at open %d != configured entry_dte %d", leg.id, dte, leg.entryDTE); err != nil {
			return err
		}

		T := float64(dte) / 252.0
		premium, err := pricing.Price(pricingTypeOf(leg.optType), F, K, T, impliedVol, k.cfg.Simulation.RiskFreeRate)
		if err != nil {
			k.m.observeNumericalErr()
			return &NumericalError{Op: "Price", Inputs: fmt.Sprintf("leg=%s F=%.4f K=%.4f T=%.6f", leg.id, F, K, T), Err: err}
		}

		c := contract.Contract{Type: leg.optType, Strike: K, Expiration: expiration, Side: leg.side}
		evt := eventlog.Event{
			Timestamp: calendar.Timestamp{Day: day, Time: leg.entryTime},
			LegID:     leg.id,
			Kind:      eventlog.PositionOpened,
			Opened:    &eventlog.OpenedPayload{Contract: c, Premium: premium},
		}
		if _, err := k.log.Append(evt); err != nil {
			return &NumericalError{Op: "Append", Inputs: leg.id, Err: err}
		}
		position.Apply(leg.state, evt)
		leg.dailyOpenPrice = F
		leg.entryPrice = F
		leg.lastRollPrice = F
		k.m.observeOpen()
		k.lg.Infof("event=position_opened leg=%s strike=%.2f premium=%.4f day=%d", leg.id, K, premium, day)
	}
	return nil
}

func pricingTypeOf(t contract.OptionType) pricing.OptionType {
	if t == contract.Put {
		return pricing.Put
	}
	return pricing.Call
}

// processDay steps day through every configured intraday instant, then
// force-closes at expiration any leg that is still open with zero DTE
// after all instants have had a chance to roll it away — a leg with a
// fired, unrejected roll decision at DTE 0 rolls instead of closing; the
// forced expiration close is reserved for legs no roll decision saved.
func (k *Kernel) processDay(legs []*legRuntime, day calendar.Day, instants []calendar.TimeOfDay, optionExpiry calendar.TimeOfDay, F, impliedVol float64) error {
	for _, instant := range instants {
		if err := k.stepInstant(legs, day, instant, F, impliedVol); err != nil {
			return err
		}
	}

	for _, leg := range legs {
		if !leg.state.Open {
			continue
		}
		if calendar.DTE(day, leg.state.Contract.Expiration) == 0 {
			if err := k.closeLeg(leg, day, optionExpiry, F, impliedVol, "expiration"); err != nil {
				return err
			}
		}
	}

	for _, leg := range legs {
		position.ClearDailyFlag(leg.state)
		leg.rollsToday = 0
	}

	return nil
}

// stepInstant evaluates every open leg whose checkTimes include instant:
// it marks the leg to market, decides whether a roll/close fires, and
// executes rolls (or records RollRejected) immediately. It never closes
// a leg at expiration itself — that is processDay's job once every
// instant for the day has run.
func (k *Kernel) stepInstant(legs []*legRuntime, day calendar.Day, instant calendar.TimeOfDay, F, impliedVol float64) error {
	decisions := make(map[string]trigger.Decision, len(legs))

	for _, leg := range legs {
		if !leg.state.Open || !leg.checksAt(instant) {
			continue
		}

		dte := calendar.DTE(day, leg.state.Contract.Expiration)
		T := float64(dte) / 252.0
		mark, err := pricing.Price(pricingTypeOf(leg.state.Contract.Type), F, leg.state.Contract.Strike, T, impliedVol, k.cfg.Simulation.RiskFreeRate)
		if err != nil {
			k.m.observeNumericalErr()
			return &NumericalError{Op: "Price", Inputs: fmt.Sprintf("leg=%s day=%d", leg.id, day), Err: err}
		}
		sign := leg.state.Contract.Side.CreditSign()
		unrealized := sign*leg.state.EntryPremium - sign*mark

		markEvt := eventlog.Event{
			Timestamp: calendar.Timestamp{Day: day, Time: instant},
			LegID:     leg.id,
			Kind:      eventlog.MarkToMarket,
			Marked:    &eventlog.MarkPayload{Underlying: F, Mark: mark, UnrealizedPnL: unrealized},
		}
		if _, err := k.log.Append(markEvt); err != nil {
			return &NumericalError{Op: "Append", Inputs: leg.id, Err: err}
		}
		position.Apply(leg.state, markEvt)

		var delta float64
		g, gerr := pricing.ComputeGreeks(pricingTypeOf(leg.state.Contract.Type), F, leg.state.Contract.Strike, T, impliedVol, k.cfg.Simulation.RiskFreeRate)
		if gerr == nil {
			delta = g.Delta
		}

		ls := trigger.LegState{
			DTE: dte, RolledToday: leg.state.RolledToday, RollsToday: leg.rollsToday,
			LastRoll: leg.state.LastRoll, HasRolled: leg.state.HasRolled,
			IsShort:   leg.state.Contract.Side == contract.Short,
			MaxCredit: leg.state.MaxCredit, MaxDebit: leg.state.MaxDebit,
			UnrealizedPnL: unrealized, EntryPrice: leg.entryPrice,
			LastRollPrice: leg.lastRollPrice, DailyOpenPrice: leg.dailyOpenPrice,
			CurrentPrice: F, Delta: delta,
		}
		evt := trigger.MarketEvent{Now: calendar.Timestamp{Day: day, Time: instant}, IsExpiration: dte == 0}
		decisions[leg.id] = trigger.Decide(ls, trigger.Config{Triggers: leg.rollTriggers, MaxRollsPerDay: leg.maxRollsPerDay, MinInterval: leg.minInterval}, evt)
	}

	decisions = k.coupleGroups(legs, decisions)

	for _, leg := range legs {
		if !leg.state.Open {
			continue
		}
		d, ok := decisions[leg.id]
		if !ok || !d.Fires {
			continue
		}
		if d.Rejected {
			evt := eventlog.Event{
				Timestamp: calendar.Timestamp{Day: day, Time: instant},
				LegID:     leg.id,
				Kind:      eventlog.RollRejected,
				Rejected:  &eventlog.RejectedPayload{Reasons: d.Reasons},
			}
			if _, err := k.log.Append(evt); err != nil {
				return &NumericalError{Op: "Append", Inputs: leg.id, Err: err}
			}
			position.Apply(leg.state, evt)
			k.m.observeRejection()
			continue
		}

		// A decision that fires and isn't cooldown-rejected always
		// rolls, even with DTE 0: processDay's end-of-day pass only
		// force-closes legs that reach expiration without a roll.
		if err := k.rollLeg(leg, day, instant, F, impliedVol, d.Reasons); err != nil {
			return err
		}
	}

	return nil
}

func (k *Kernel) coupleGroups(legs []*legRuntime, decisions map[string]trigger.Decision) map[string]trigger.Decision {
	groups := map[string][]*legRuntime{}
	for _, leg := range legs {
		if leg.rollMode == trigger.Independent || leg.rollGroup == "" {
			continue
		}
		groups[leg.rollGroup] = append(groups[leg.rollGroup], leg)
	}
	for _, members := range groups {
		ids := make([]string, 0, len(members))
		leader := members[0].id
		mode := members[0].rollMode
		for _, m := range members {
			ids = append(ids, m.id)
			if m.rollLeader {
				leader = m.id
			}
		}
		decisions = trigger.Couple(trigger.Group{Mode: mode, Legs: ids, Leader: leader}, decisions)
	}
	return decisions
}

func (k *Kernel) closeLeg(leg *legRuntime, day calendar.Day, t calendar.TimeOfDay, F, impliedVol float64, reason string) error {
	dte := calendar.DTE(day, leg.state.Contract.Expiration)
	T := float64(dte) / 252.0
	premium, err := pricing.Price(pricingTypeOf(leg.state.Contract.Type), F, leg.state.Contract.Strike, T, impliedVol, k.cfg.Simulation.RiskFreeRate)
	if err != nil {
		k.m.observeNumericalErr()
		return &NumericalError{Op: "Price", Inputs: fmt.Sprintf("close leg=%s day=%d", leg.id, day), Err: err}
	}
	evt := eventlog.Event{
		Timestamp: calendar.Timestamp{Day: day, Time: t},
		LegID:     leg.id,
		Kind:      eventlog.PositionClosed,
		Closed:    &eventlog.ClosedPayload{Contract: leg.state.Contract, Premium: premium, Reason: reason},
	}
	if _, err := k.log.Append(evt); err != nil {
		return &NumericalError{Op: "Append", Inputs: leg.id, Err: err}
	}
	position.Apply(leg.state, evt)
	k.m.observeClose()
	k.lg.Infof("event=position_closed leg=%s reason=%s premium=%.4f day=%d", leg.id, reason, premium, day)
	return nil
}

func (k *Kernel) rollLeg(leg *legRuntime, day calendar.Day, t calendar.TimeOfDay, F, impliedVol float64, reasons []string) error {
	old := leg.state.Contract
	dteOld := calendar.DTE(day, old.Expiration)
	exitPremium, err := pricing.Price(pricingTypeOf(old.Type), F, old.Strike, float64(dteOld)/252.0, impliedVol, k.cfg.Simulation.RiskFreeRate)
	if err != nil {
		k.m.observeNumericalErr()
		return &NumericalError{Op: "Price", Inputs: "roll exit " + leg.id, Err: err}
	}

	var K float64
	if leg.rollDestRecenter {
		mkt := strike.Market{Underlying: F, TickSize: k.cfg.StrikeConfig.TickSize}
		K, err = strike.Resolve(leg.rollStrikeRule, mkt)
		if err != nil {
			return &ConfigError{Field: "strategy.legs." + leg.id + ".roll_strike_rule", Err: err}
		}
	} else {
		K = old.Strike
	}

	newExpiration := calendar.ExpirationDay(day, leg.rollDestDTE)
	dteNew := calendar.DTE(day, newExpiration)
	entryPremium, err := pricing.Price(pricingTypeOf(old.Type), F, K, float64(dteNew)/252.0, impliedVol, k.cfg.Simulation.RiskFreeRate)
	if err != nil {
		k.m.observeNumericalErr()
		return &NumericalError{Op: "Price", Inputs: "roll entry " + leg.id, Err: err}
	}

	newContract := contract.Contract{Type: old.Type, Strike: K, Expiration: newExpiration, Side: old.Side}
	evt := eventlog.Event{
		Timestamp: calendar.Timestamp{Day: day, Time: t},
		LegID:     leg.id,
		Kind:      eventlog.LegRolled,
		Rolled: &eventlog.RolledPayload{
			OldContract: old, NewContract: newContract,
			ExitPremium: exitPremium, EntryPremium: entryPremium,
			Reasons: reasons,
		},
	}
	if _, err := k.log.Append(evt); err != nil {
		return &NumericalError{Op: "Append", Inputs: leg.id, Err: err}
	}

	if err := assert("roll_cooldown_limits", leg.maxRollsPerDay <= 0 || leg.rollsToday < leg.maxRollsPerDay, "leg %s exceeded max_rolls_per_day", leg.id); err != nil {
		return err
	}

	position.Apply(leg.state, evt)
	leg.rollsToday++
	leg.lastRollDay = day
	leg.lastRollPrice = F
	k.m.observeRoll()
	k.lg.Infof("event=leg_rolled leg=%s new_strike=%.2f day=%d", leg.id, K, day)
	return nil
}

func (k *Kernel) closeRemaining(legs []*legRuntime, day calendar.Day, t calendar.TimeOfDay, F, impliedVol float64, reason string) {
	for _, leg := range legs {
		if !leg.state.Open {
			continue
		}
		_ = k.closeLeg(leg, day, t, F, impliedVol, reason)
	}
}

func (k *Kernel) finish(seed uint64, legs []*legRuntime) (*Result, error) {
	events := k.log.Iter()
	if err := checkInvariants(events); err != nil {
		return nil, err
	}

	return &Result{
		Seed:        seed,
		Fingerprint: fingerprintOf(k.cfg),
		Events:      events,
		Summary:     accounting.Fold(k.log),
	}, nil
}

func fingerprintOf(cfg *config.Config) Fingerprint {
	return Fingerprint(cfg.Strategy.Type + ":" + strconv.FormatFloat(cfg.Simulation.Volatility, 'f', 6, 64) +
		":" + strconv.FormatUint(uint64(cfg.Simulation.Days), 10))
}
