package strategy

import (
	"fmt"
	"math"

	"stock-backtest-go/internal/backtest"
)

var (
	_ backtest.Strategy = (*TripleMovingAverage)(nil)
	_ backtest.Strategy = (*Momentum)(nil)
	_ backtest.Strategy = (*TurtleTrading)(nil)
	_ backtest.Strategy = (*MeanReversion)(nil)
)

// TripleMovingAverage requires all three averages to stack before taking a
// side: short above medium above long is bullish, the reverse is bearish.
type TripleMovingAverage struct {
	Short  int
	Medium int
	Long   int
}

func (s *TripleMovingAverage) Name() string { return "TripleMovingAverage" }

func (s *TripleMovingAverage) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Short < 1 || s.Medium <= s.Short || s.Long <= s.Medium {
		return nil, fmt.Errorf("triple ma windows %d/%d/%d must be strictly increasing", s.Short, s.Medium, s.Long)
	}

	c := closes(bars)
	short := sma(c, s.Short)
	medium := sma(c, s.Medium)
	long := sma(c, s.Long)

	regime := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		if math.IsNaN(long[i]) {
			continue
		}
		defined[i] = true
		switch {
		case short[i] > medium[i] && medium[i] > long[i]:
			regime[i] = 1
		case short[i] < medium[i] && medium[i] < long[i]:
			regime[i] = -1
		}
	}
	return diffSignals(regime, defined), nil
}

// Momentum buys strong rate-of-change confirmed by its own short average and
// sells when momentum turns.
type Momentum struct {
	Period    int
	Threshold float64
}

// momentumConfirmWindow smooths the raw momentum for trend confirmation.
const momentumConfirmWindow = 5

func (s *Momentum) Name() string { return "Momentum" }

func (s *Momentum) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Period < 1 || s.Threshold <= 0 {
		return nil, fmt.Errorf("momentum %d/%.3f: need a positive period and threshold", s.Period, s.Threshold)
	}

	mom := pctChange(closes(bars), s.Period)

	momMA := make([]float64, len(bars))
	for i := range momMA {
		if i < s.Period+momentumConfirmWindow-1 {
			momMA[i] = math.NaN()
			continue
		}
		var sum float64
		for j := i - momentumConfirmWindow + 1; j <= i; j++ {
			sum += mom[j]
		}
		momMA[i] = sum / momentumConfirmWindow
	}

	raw := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		if math.IsNaN(mom[i]) || math.IsNaN(momMA[i]) {
			continue
		}
		defined[i] = true
		switch {
		case mom[i] < -s.Threshold || momMA[i] < -s.Threshold/2:
			raw[i] = -1
		case mom[i] > s.Threshold && momMA[i] > 0:
			raw[i] = 1
		}
	}
	return dedupeSignals(raw, defined), nil
}

// TurtleTrading enters on a close above the previous entry-channel high and
// exits on a close below the previous exit-channel low.
type TurtleTrading struct {
	EntryPeriod int
	ExitPeriod  int
}

func (s *TurtleTrading) Name() string { return "TurtleTrading" }

func (s *TurtleTrading) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.EntryPeriod < 1 || s.ExitPeriod < 1 {
		return nil, fmt.Errorf("turtle %d/%d: periods must be positive", s.EntryPeriod, s.ExitPeriod)
	}

	entryHigh := rollingMax(highs(bars), s.EntryPeriod)
	exitLow := rollingMin(lows(bars), s.ExitPeriod)

	ready := s.EntryPeriod
	if s.ExitPeriod > ready {
		ready = s.ExitPeriod
	}

	c := closes(bars)
	signals := make([]backtest.Signal, len(bars))
	for i := ready; i < len(bars); i++ {
		switch {
		case c[i] > entryHigh[i-1]:
			signals[i] = backtest.Buy
		case c[i] < exitLow[i-1]:
			signals[i] = backtest.Sell
		}
	}
	return signals, nil
}

// MeanReversion buys a close stretched below the rolling mean by more than
// StdDev standard deviations and sells once the close is back above the mean.
type MeanReversion struct {
	Period int
	StdDev float64
}

func (s *MeanReversion) Name() string { return "MeanReversion" }

func (s *MeanReversion) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Period < 2 || s.StdDev <= 0 {
		return nil, fmt.Errorf("mean reversion %d/%.2f: need a period of at least 2 and a positive width", s.Period, s.StdDev)
	}

	c := closes(bars)
	mean, std := meanStd(c, s.Period)

	raw := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		dev := (c[i] - mean[i]) / std[i]
		if math.IsNaN(dev) {
			continue
		}
		defined[i] = true
		switch {
		case dev < -s.StdDev:
			raw[i] = 1
		case dev > 0:
			raw[i] = -1
		}
	}
	return dedupeSignals(raw, defined), nil
}
