package backtest

// Slippage always moves the fill against the trader: buys fill above the
// close, sells below it.

func (c Config) effectiveBuyPrice(close float64) float64 {
	return close * (1 + c.SlippageRate)
}

func (c Config) effectiveSellPrice(close float64) float64 {
	return close * (1 - c.SlippageRate)
}

// commission is charged on the effective notional of both sides.
func (c Config) commission(notional float64) float64 {
	return notional * c.CommissionRate
}

// stampDuty is charged on the effective notional of the configured side(s)
// and is zero elsewhere.
func (c Config) stampDuty(notional float64, d Direction) float64 {
	switch d {
	case DirectionBuy:
		if c.StampDutySide.onBuy() {
			return notional * c.StampDutyRate
		}
	case DirectionSell:
		if c.StampDutySide.onSell() {
			return notional * c.StampDutyRate
		}
	}
	return 0
}

// buyCostRate is the per-yuan friction on a buy, used when sizing a
// position so that notional plus costs never exceeds the budget.
func (c Config) buyCostRate() float64 {
	r := c.CommissionRate
	if c.StampDutySide.onBuy() {
		r += c.StampDutyRate
	}
	return r
}
