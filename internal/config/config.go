// Package config defines the structured, JSON-tagged configuration
// boundary for a simulation run, validated by go-playground/validator
// before a Kernel ever sees it.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/contactkeval/oilsim/internal/calendar"
)

// SimulationConfig parameterizes the price process and product economics.
type SimulationConfig struct {
	Days                  uint32  `json:"days" validate:"gte=1,lte=10000"`
	InitialPrice          float64 `json:"initial_price" validate:"gt=0"`
	Drift                 float64 `json:"drift"`
	Volatility            float64 `json:"volatility" validate:"gt=0"`
	Seed                  uint64  `json:"seed"`
	RiskFreeRate          float64 `json:"risk_free_rate"`
	VolatilityRiskPremium float64 `json:"volatility_risk_premium" validate:"gte=0"`
	ContractMultiplier    float64 `json:"contract_multiplier" validate:"gt=0"`

	// PriceModel selects the underlying's stochastic process. Defaults to
	// "gbm" when empty. "ou" and "schwartz1f" are mean-reverting
	// alternatives for underlyings (many commodity futures among them)
	// that don't behave like a pure random walk; both consume
	// MeanReversionRate and MeanLevel in place of Drift.
	PriceModel        string  `json:"price_model,omitempty" validate:"omitempty,oneof=gbm ou schwartz1f"`
	MeanReversionRate float64 `json:"mean_reversion_rate,omitempty" validate:"gte=0"`
	MeanLevel         float64 `json:"mean_level,omitempty"`
}

// TriggerConfig is the JSON-serializable form of a trigger.Trigger.
type TriggerConfig struct {
	Kind      string  `json:"kind" validate:"required,oneof=dte_threshold time_of_day profit_target stop_loss price_move delta_threshold expiration manual"`
	DTE       uint32  `json:"dte,omitempty"`
	WallClock string  `json:"wall_clock,omitempty"`
	Fraction  float64 `json:"fraction,omitempty"`
	Points    float64 `json:"points,omitempty"`
	Reference string  `json:"reference,omitempty" validate:"omitempty,oneof=entry last_roll daily_open"`
	Delta     float64 `json:"delta,omitempty"`
}

// StrikeRuleConfig is the JSON-serializable form of a strike.Rule.
type StrikeRuleConfig struct {
	Kind       string  `json:"kind" validate:"required,oneof=atm otm_points itm_points percentage fixed delta_target expression"`
	Points     float64 `json:"points,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Fixed      float64 `json:"fixed,omitempty"`
	Delta      float64 `json:"delta,omitempty"`
	Expression string  `json:"expression,omitempty"`
}

// LegConfig is one leg's entry rule, roll rule, and cooldowns.
type LegConfig struct {
	ID             string           `json:"id" validate:"required"`
	Type           string           `json:"type" validate:"required,oneof=call put"`
	Side           string           `json:"side" validate:"required,oneof=long short"`
	EntryDTE       uint32           `json:"entry_dte" validate:"lte=365"`
	EntryTime      string           `json:"entry_time" validate:"required"`
	RollTime       string           `json:"roll_time" validate:"required"`
	StrikeRule     StrikeRuleConfig `json:"strike_rule" validate:"required"`
	RollTriggers   []TriggerConfig  `json:"roll_triggers"`
	RollDestDTE    uint32           `json:"roll_dest_dte"`
	RollStrikeRule StrikeRuleConfig `json:"roll_strike_rule"`
	RollMode       string           `json:"roll_mode,omitempty" validate:"omitempty,oneof=independent synchronized leader_follower"`
	RollGroup      string           `json:"roll_group,omitempty"`
	RollLeader     bool             `json:"roll_leader,omitempty"`
	RollDestMode   string           `json:"roll_dest_mode,omitempty" validate:"omitempty,oneof=recenter same_strikes"`
	MinInterval    int              `json:"min_interval_minutes"`
	MaxRollsPerDay int              `json:"max_rolls_per_day"`

	// CheckTimes lists additional intraday wall-clock instants (beyond
	// RollTime) at which this leg's roll/close triggers are evaluated,
	// e.g. ["09:45"] to give a trigger a second look 15 minutes after
	// its first, so min_interval_minutes' same-day cooldown can reject
	// a second roll rather than never being exercised. RollTime is
	// always checked even if omitted here.
	CheckTimes []string `json:"check_times,omitempty"`
}

// StrategyConfig is an ordered set of legs plus optional position-level
// exit conditions.
type StrategyConfig struct {
	Type                 string      `json:"strategy_type" validate:"required,oneof=straddle strangle iron_condor custom"`
	Legs                 []LegConfig `json:"legs" validate:"required,min=1,dive"`
	PositionProfitTarget *float64    `json:"position_profit_target,omitempty"`
	PositionStop         *float64    `json:"position_stop,omitempty"`
}

// StrikeGlobalConfig carries the tick size and default roll destination
// mode shared across legs that don't override it.
type StrikeGlobalConfig struct {
	TickSize float64 `json:"tick_size" validate:"gt=0"`
	RollType string  `json:"roll_type" validate:"required,oneof=recenter same_strikes"`
}

// ProductConfig describes the traded underlying and trading-hours clock.
type ProductConfig struct {
	Symbol       string  `json:"symbol" validate:"required"`
	TickSize     float64 `json:"tick_size" validate:"gt=0"`
	PointValue   float64 `json:"point_value" validate:"gt=0"`
	TradingOpen  string  `json:"trading_open" validate:"required"`
	TradingClose string  `json:"trading_close" validate:"required"`
	OptionExpiry string  `json:"option_expiry" validate:"required"`
}

// Config is the full structured configuration value accepted by the
// kernel, validated before use.
type Config struct {
	Simulation   SimulationConfig   `json:"simulation" validate:"required"`
	Strategy     StrategyConfig     `json:"strategy" validate:"required"`
	StrikeConfig StrikeGlobalConfig `json:"strike_config" validate:"required"`
	Product      ProductConfig      `json:"product" validate:"required"`
}

var validate = validator.New()

// Load reads and unmarshals a JSON configuration file, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects (never coerces) an invalid Config: duplicate leg IDs,
// entry_dte > 365, stop tighter than profit target, roll-DTE after
// exit-DTE, volatility <= 0, VRP < 0, and every struct-tag constraint
// above.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Strategy.Legs))
	for _, leg := range cfg.Strategy.Legs {
		if seen[leg.ID] {
			return fmt.Errorf("config: duplicate leg id %q", leg.ID)
		}
		seen[leg.ID] = true

		if leg.RollDestDTE > leg.EntryDTE {
			return fmt.Errorf("config: leg %q roll_dest_dte (%d) is after entry_dte (%d)", leg.ID, leg.RollDestDTE, leg.EntryDTE)
		}
	}

	if cfg.Simulation.PriceModel == "ou" || cfg.Simulation.PriceModel == "schwartz1f" {
		if cfg.Simulation.MeanReversionRate <= 0 {
			return fmt.Errorf("config: price_model %q requires mean_reversion_rate > 0", cfg.Simulation.PriceModel)
		}
	}

	if cfg.Strategy.PositionProfitTarget != nil && cfg.Strategy.PositionStop != nil {
		if *cfg.Strategy.PositionStop < *cfg.Strategy.PositionProfitTarget {
			return fmt.Errorf("config: position_stop (%v) tighter than position_profit_target (%v)",
				*cfg.Strategy.PositionStop, *cfg.Strategy.PositionProfitTarget)
		}
	}

	if err := checkTimeOrdering(cfg); err != nil {
		return err
	}

	return nil
}

// checkTimeOrdering rejects any leg whose entry_time, roll_time, or
// check_times fall after product.option_expiry: a forced expiration close
// is timestamped at option_expiry, and an intraday check instant later than
// that would make the event log's timestamps go backwards.
func checkTimeOrdering(cfg *Config) error {
	expiry, err := calendar.ParseTimeOfDay(cfg.Product.OptionExpiry)
	if err != nil {
		return fmt.Errorf("config: product.option_expiry: %w", err)
	}

	for _, leg := range cfg.Strategy.Legs {
		times := append([]string{leg.EntryTime, leg.RollTime}, leg.CheckTimes...)
		for _, s := range times {
			t, err := calendar.ParseTimeOfDay(s)
			if err != nil {
				return fmt.Errorf("config: leg %q: %w", leg.ID, err)
			}
			if t > expiry {
				return fmt.Errorf("config: leg %q check time %q is after product.option_expiry %q", leg.ID, s, cfg.Product.OptionExpiry)
			}
		}
	}
	return nil
}
