package kernel

import (
	"fmt"
	"math"

	"github.com/contactkeval/oilsim/internal/calendar"
	"github.com/contactkeval/oilsim/internal/config"
	"github.com/contactkeval/oilsim/internal/contract"
	"github.com/contactkeval/oilsim/internal/priceproc"
	"github.com/contactkeval/oilsim/internal/strike"
	"github.com/contactkeval/oilsim/internal/trigger"
)

// generatorOf builds the priceproc.Generator sim selects. "gbm" (the
// default, including an empty value) is the pure random walk; "ou" and
// "schwartz1f" mean-revert toward MeanLevel at MeanReversionRate — the
// latter in log-space, the former in price-space.
func generatorOf(sim config.SimulationConfig) priceproc.Generator {
	switch sim.PriceModel {
	case "ou":
		return priceproc.NewOUGenerator(priceproc.OUParams{
			MeanLevel:     sim.MeanLevel,
			ReversionRate: sim.MeanReversionRate,
			Vol:           sim.Volatility,
			VRP:           sim.VolatilityRiskPremium,
		})
	case "schwartz1f":
		meanLevel := sim.MeanLevel
		if meanLevel <= 0 {
			meanLevel = sim.InitialPrice
		}
		return priceproc.NewSchwartz1FGenerator(priceproc.Schwartz1FParams{
			LogMeanLevel:  math.Log(meanLevel),
			ReversionRate: sim.MeanReversionRate,
			Vol:           sim.Volatility,
			VRP:           sim.VolatilityRiskPremium,
		})
	default:
		return priceproc.NewGBMGenerator(priceproc.Params{
			InitialPrice: sim.InitialPrice,
			Drift:        sim.Drift,
			RealizedVol:  sim.Volatility,
			VRP:          sim.VolatilityRiskPremium,
		})
	}
}

// impliedVolOf returns the implied vol sim.PriceModel's generator would
// report, independent of which concrete Params type backs it.
func impliedVolOf(sim config.SimulationConfig) float64 {
	return sim.Volatility + sim.VolatilityRiskPremium
}

func optionTypeOf(s string) contract.OptionType {
	if s == "put" {
		return contract.Put
	}
	return contract.Call
}

func sideOf(s string) contract.Side {
	if s == "long" {
		return contract.Long
	}
	return contract.Short
}

func strikeOptionTypeOf(t contract.OptionType) strike.OptionType {
	if t == contract.Put {
		return strike.Put
	}
	return strike.Call
}

func pricingReferenceOf(s string) trigger.PriceReference {
	switch s {
	case "last_roll":
		return trigger.LastRoll
	case "daily_open":
		return trigger.DailyOpen
	default:
		return trigger.Entry
	}
}

func strikeRuleOf(c config.StrikeRuleConfig, typ contract.OptionType) (strike.Rule, error) {
	r := strike.Rule{Type: strikeOptionTypeOf(typ)}
	switch c.Kind {
	case "atm":
		r.Kind = strike.ATM
	case "otm_points":
		r.Kind = strike.OTMPoints
		r.Points = c.Points
	case "itm_points":
		r.Kind = strike.ITMPoints
		r.Points = c.Points
	case "percentage":
		r.Kind = strike.Percentage
		r.Pct = c.Percentage
	case "fixed":
		r.Kind = strike.Fixed
		r.Fixed = c.Fixed
	case "delta_target":
		r.Kind = strike.DeltaTarget
		r.TargetDelta = c.Delta
	case "expression":
		r.Kind = strike.Expression
		r.Expr = c.Expression
	default:
		return strike.Rule{}, fmt.Errorf("kernel: unknown strike rule kind %q", c.Kind)
	}
	return r, nil
}

func triggerOf(c config.TriggerConfig) (trigger.Trigger, error) {
	t := trigger.Trigger{}
	switch c.Kind {
	case "dte_threshold":
		t.Kind = trigger.DteThreshold
		t.DTE = c.DTE
	case "time_of_day":
		t.Kind = trigger.TimeOfDay
		tod, err := calendar.ParseTimeOfDay(c.WallClock)
		if err != nil {
			return t, err
		}
		t.WallClock = tod
	case "profit_target":
		t.Kind = trigger.ProfitTarget
		t.Fraction = c.Fraction
	case "stop_loss":
		t.Kind = trigger.StopLoss
		t.Fraction = c.Fraction
	case "price_move":
		t.Kind = trigger.PriceMove
		t.Points = c.Points
		t.Reference = pricingReferenceOf(c.Reference)
	case "delta_threshold":
		t.Kind = trigger.DeltaThreshold
		t.Delta = c.Delta
	case "expiration":
		t.Kind = trigger.Expiration
		tod, err := calendar.ParseTimeOfDay(c.WallClock)
		if err != nil {
			return t, err
		}
		t.WallClock = tod
	case "manual":
		t.Kind = trigger.Manual
	default:
		return t, fmt.Errorf("kernel: unknown trigger kind %q", c.Kind)
	}
	return t, nil
}

func triggersOf(cs []config.TriggerConfig) ([]trigger.Trigger, error) {
	out := make([]trigger.Trigger, 0, len(cs))
	for _, c := range cs {
		t, err := triggerOf(c)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func rollModeOf(s string) trigger.RollMode {
	switch s {
	case "synchronized":
		return trigger.Synchronized
	case "leader_follower":
		return trigger.LeaderFollower
	default:
		return trigger.Independent
	}
}
