package strategy

import (
	"fmt"
	"math"

	"stock-backtest-go/internal/backtest"
)

var (
	_ backtest.Strategy = (*DualMovingAverage)(nil)
	_ backtest.Strategy = (*MACD)(nil)
	_ backtest.Strategy = (*BollingerBands)(nil)
	_ backtest.Strategy = (*RSI)(nil)
	_ backtest.Strategy = (*KDJ)(nil)
)

// DualMovingAverage trades the golden and death crosses of two simple moving
// averages.
type DualMovingAverage struct {
	Short int
	Long  int
}

func (s *DualMovingAverage) Name() string { return "DualMovingAverage" }

func (s *DualMovingAverage) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Short < 1 || s.Long <= s.Short {
		return nil, fmt.Errorf("dual ma windows %d/%d: short must be at least 1 and below long", s.Short, s.Long)
	}

	c := closes(bars)
	short := sma(c, s.Short)
	long := sma(c, s.Long)

	regime := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		if math.IsNaN(long[i]) || math.IsNaN(short[i]) {
			continue
		}
		defined[i] = true
		switch {
		case short[i] > long[i]:
			regime[i] = 1
		case short[i] < long[i]:
			regime[i] = -1
		}
	}
	return diffSignals(regime, defined), nil
}

// MACD trades crossings of the DIF line over its DEA signal line.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func (s *MACD) Name() string { return "MACD" }

func (s *MACD) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Fast < 1 || s.Slow <= s.Fast || s.Signal < 1 {
		return nil, fmt.Errorf("macd periods %d/%d/%d: need fast < slow and a positive signal period", s.Fast, s.Slow, s.Signal)
	}

	c := closes(bars)
	fast := ema(c, s.Fast)
	slow := ema(c, s.Slow)
	dif := make([]float64, len(c))
	for i := range c {
		dif[i] = fast[i] - slow[i]
	}
	dea := ema(dif, s.Signal)

	regime := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		defined[i] = true
		switch {
		case dif[i] > dea[i]:
			regime[i] = 1
		case dif[i] < dea[i]:
			regime[i] = -1
		}
	}
	return diffSignals(regime, defined), nil
}

// BollingerBands buys near the lower band and sells near the upper one,
// using the close's position inside the band.
type BollingerBands struct {
	Period int
	StdDev float64
}

func (s *BollingerBands) Name() string { return "BollingerBands" }

func (s *BollingerBands) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Period < 2 || s.StdDev <= 0 {
		return nil, fmt.Errorf("bollinger %d/%.2f: need a period of at least 2 and a positive width", s.Period, s.StdDev)
	}

	c := closes(bars)
	mean, std := meanStd(c, s.Period)

	raw := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		upper := mean[i] + s.StdDev*std[i]
		lower := mean[i] - s.StdDev*std[i]
		position := (c[i] - lower) / (upper - lower)
		if math.IsNaN(position) {
			continue
		}
		defined[i] = true
		switch {
		case position < 0.2:
			raw[i] = 1
		case position > 0.8:
			raw[i] = -1
		}
	}
	return dedupeSignals(raw, defined), nil
}

// RSI trades the oversold and overbought zones of the relative strength
// index: entering the lower zone buys, entering the upper zone sells, and
// leaving a zone steps back toward neutral.
type RSI struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (s *RSI) Name() string { return "RSI" }

func (s *RSI) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Period < 1 || s.Oversold < 0 || s.Overbought <= s.Oversold || s.Overbought > 100 {
		return nil, fmt.Errorf("rsi %d/%.0f/%.0f: need oversold < overbought within [0, 100]", s.Period, s.Oversold, s.Overbought)
	}

	r := rsi(closes(bars), s.Period)

	regime := make([]int8, len(bars))
	defined := make([]bool, len(bars))
	for i := range bars {
		if math.IsNaN(r[i]) {
			continue
		}
		defined[i] = true
		switch {
		case r[i] < s.Oversold:
			regime[i] = 1
		case r[i] > s.Overbought:
			regime[i] = -1
		}
	}
	return diffSignals(regime, defined), nil
}

// KDJ trades K/D crosses that happen inside the J extremes: a bullish cross
// with J oversold buys, a bearish cross with J overbought sells.
type KDJ struct {
	Period     int
	SmoothK    int
	SmoothD    int
	Oversold   float64
	Overbought float64
}

func (s *KDJ) Name() string { return "KDJ" }

func (s *KDJ) GenerateSignals(bars []backtest.Bar) ([]backtest.Signal, error) {
	if s.Period < 1 || s.SmoothK < 1 || s.SmoothD < 1 || s.Overbought <= s.Oversold {
		return nil, fmt.Errorf("kdj %d/%d/%d: need positive periods and oversold < overbought", s.Period, s.SmoothK, s.SmoothD)
	}

	k, d, j := kdj(highs(bars), lows(bars), closes(bars), s.Period, s.SmoothK, s.SmoothD)

	signals := make([]backtest.Signal, len(bars))
	for i := 1; i < len(bars); i++ {
		crossUp := k[i] > d[i] && k[i-1] <= d[i-1]
		crossDown := k[i] < d[i] && k[i-1] >= d[i-1]
		switch {
		case j[i] < s.Oversold && crossUp:
			signals[i] = backtest.Buy
		case j[i] > s.Overbought && crossDown:
			signals[i] = backtest.Sell
		}
	}
	return signals, nil
}
