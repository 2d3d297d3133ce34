package backtest

// StampDutySide names the trade side(s) charged stamp duty. A-share markets
// levy it on sells only; the side is explicit so a rule change is a config
// edit, not a code change.
type StampDutySide string

const (
	StampDutySell StampDutySide = "sell"
	StampDutyBuy  StampDutySide = "buy"
	StampDutyBoth StampDutySide = "both"
)

func (s StampDutySide) onBuy() bool  { return s == StampDutyBuy || s == StampDutyBoth }
func (s StampDutySide) onSell() bool { return s == StampDutySell || s == StampDutyBoth }

// Config holds every parameter the simulation reads. It is copied by value
// into the engine at construction and never mutated afterwards.
type Config struct {
	InitialCapital   float64
	CommissionRate   float64
	StampDutyRate    float64
	StampDutySide    StampDutySide
	SlippageRate     float64
	PositionFraction float64
	LotSize          int64
}

// DefaultConfig returns the standard A-share cost assumptions: 0.03%
// commission both sides, 0.1% stamp duty on sells, 0.01% slippage, full
// position sizing, 100-share lots.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   100000,
		CommissionRate:   0.0003,
		StampDutyRate:    0.001,
		StampDutySide:    StampDutySell,
		SlippageRate:     0.0001,
		PositionFraction: 1.0,
		LotSize:          100,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return &ConfigError{Field: "initial_capital", Reason: "must be positive"}
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return &ConfigError{Field: "commission_rate", Reason: "must be in [0, 1)"}
	}
	if c.StampDutyRate < 0 || c.StampDutyRate >= 1 {
		return &ConfigError{Field: "stamp_duty_rate", Reason: "must be in [0, 1)"}
	}
	if c.CommissionRate+c.StampDutyRate >= 1 {
		return &ConfigError{Field: "stamp_duty_rate", Reason: "combined with commission_rate must stay below 1"}
	}
	switch c.StampDutySide {
	case StampDutySell, StampDutyBuy, StampDutyBoth:
	default:
		return &ConfigError{Field: "stamp_duty_side", Reason: `must be "sell", "buy" or "both"`}
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return &ConfigError{Field: "slippage_rate", Reason: "must be in [0, 1)"}
	}
	if c.PositionFraction <= 0 || c.PositionFraction > 1 {
		return &ConfigError{Field: "position_fraction", Reason: "must be in (0, 1]"}
	}
	if c.LotSize < 1 {
		return &ConfigError{Field: "lot_size", Reason: "must be at least 1"}
	}
	return nil
}
