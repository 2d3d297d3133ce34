package strategy

import (
	"fmt"
	"math"

	"stock-backtest-go/internal/backtest"
)

var _ backtest.Strategy = (*Combo)(nil)

// maxEntryRSI blocks combo entries when the RSI is already stretched.
const maxEntryRSI = 60.0

// Combo confirms MACD crosses with the RSI zone: a golden cross buys only
// below the entry ceiling, and a death cross or an overbought RSI sells.
type Combo struct {
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	RSIPeriod     int
	RSIOverbought float64
}

func (s *Combo) Name() string { return "Combo" }

func (s *Combo) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.MACDFast < 1 || s.MACDSlow <= s.MACDFast || s.MACDSignal < 1 {
		return nil, fmt.Errorf("combo macd periods %d/%d/%d: need fast < slow and a positive signal period", s.MACDFast, s.MACDSlow, s.MACDSignal)
	}
	if s.RSIPeriod < 1 || s.RSIOverbought <= 0 || s.RSIOverbought > 100 {
		return nil, fmt.Errorf("combo rsi %d/%.0f: need a positive period and a threshold within (0, 100]", s.RSIPeriod, s.RSIOverbought)
	}

	c := closes(bars)
	fast := ema(c, s.MACDFast)
	slow := ema(c, s.MACDSlow)
	dif := make([]float64, len(c))
	for i := range c {
		dif[i] = fast[i] - slow[i]
	}
	dea := ema(dif, s.MACDSignal)
	r := rsi(c, s.RSIPeriod)

	signals := make([]backtest.Signal, len(bars))
	for i := 1; i < len(bars); i++ {
		if math.IsNaN(r[i]) {
			continue
		}
		crossUp := dif[i] > dea[i] && dif[i-1] <= dea[i-1]
		crossDown := dif[i] < dea[i] && dif[i-1] >= dea[i-1]
		switch {
		case crossDown || r[i] > s.RSIOverbought:
			signals[i] = backtest.Sell
		case crossUp && r[i] < maxEntryRSI:
			signals[i] = backtest.Buy
		}
	}
	return signals, nil
}
