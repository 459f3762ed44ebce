package domain

import "fmt"

// StateNames names the five state implementations a play uses. A blank name
// selects the built-in implementation for that slot.
type StateNames struct {
	Waiting          string `yaml:"state_waiting" toml:"state_waiting"`
	EnteringPosition string `yaml:"state_entering_position" toml:"state_entering_position"`
	TakingProfit     string `yaml:"state_taking_profit" toml:"state_taking_profit"`
	StoppingLoss     string `yaml:"state_stopping_loss" toml:"state_stopping_loss"`
	Terminated       string `yaml:"state_terminated" toml:"state_terminated"`
}

// PlayConfig is the immutable parameter bundle for one candidate strategy in
// one (category, condition) cell of the play library.
type PlayConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Category  string `yaml:"-" toml:"-"`
	Condition string `yaml:"-" toml:"-"`

	// MaxPlaySize is the budget cap for a single Instance's buy.
	MaxPlaySize         float64   `yaml:"max_play_size" toml:"max_play_size"`
	BuyOrderType        OrderType `yaml:"buy_order_type" toml:"buy_order_type"`
	BuyTimeoutIntervals int       `yaml:"buy_timeout_intervals" toml:"buy_timeout_intervals"`

	TakeProfitRiskMultiplier float64 `yaml:"take_profit_risk_multiplier" toml:"take_profit_risk_multiplier"`
	TakeProfitPctToSell      float64 `yaml:"take_profit_pct_to_sell" toml:"take_profit_pct_to_sell"`

	StopLossType          string  `yaml:"stop_loss_type" toml:"stop_loss_type"`
	StopLossTriggerPct    float64 `yaml:"stop_loss_trigger_pct" toml:"stop_loss_trigger_pct"`
	StopLossHoldIntervals int     `yaml:"stop_loss_hold_intervals" toml:"stop_loss_hold_intervals"`

	StateNames `yaml:",inline"`
	Signal     string `yaml:"signal" toml:"signal"`
	Params     Params `yaml:"params" toml:"params"`
}

// WithDefaults fills the optional fields a library record may leave blank.
func (c PlayConfig) WithDefaults() PlayConfig {
	if c.BuyOrderType == "" {
		c.BuyOrderType = OrderTypeLimit
	}
	if c.BuyTimeoutIntervals <= 0 {
		c.BuyTimeoutIntervals = 2
	}
	if c.StopLossType == "" {
		c.StopLossType = string(OrderTypeMarket)
	}
	if c.StopLossHoldIntervals <= 0 {
		c.StopLossHoldIntervals = 1
	}
	if c.Params == nil {
		c.Params = Params{}
	}
	return c
}

// Validate checks the numeric ranges that the state machine relies on.
func (c PlayConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("play config in %s/%s has no name", c.Category, c.Condition)
	}
	if _, err := ParseOrderType(string(c.BuyOrderType)); err != nil {
		return fmt.Errorf("play config %q: %w", c.Name, err)
	}
	if c.MaxPlaySize <= 0 {
		return fmt.Errorf("play config %q: max_play_size must be > 0", c.Name)
	}
	if c.TakeProfitPctToSell <= 0 || c.TakeProfitPctToSell > 1 {
		return fmt.Errorf("play config %q: take_profit_pct_to_sell must be in (0, 1]", c.Name)
	}
	if c.TakeProfitRiskMultiplier <= 0 {
		return fmt.Errorf("play config %q: take_profit_risk_multiplier must be > 0", c.Name)
	}
	if c.StopLossTriggerPct < 0 || c.StopLossTriggerPct >= 1 {
		return fmt.Errorf("play config %q: stop_loss_trigger_pct must be in [0, 1)", c.Name)
	}
	return nil
}

func (c PlayConfig) String() string {
	return fmt.Sprintf("PlayConfig %q %s/%s", c.Name, c.Category, c.Condition)
}

// Params carries strategy-specific settings from the library file.
type Params map[string]any

// Float returns the named parameter as float64, or def when absent.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int returns the named parameter as int, or def when absent.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the named parameter as bool, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
