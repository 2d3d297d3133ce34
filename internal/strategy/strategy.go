// Package strategy provides the built-in signal generators. Every strategy
// emits exactly one signal per input bar, holds through indicator warmup and
// never reads past the bar it is deciding for.
package strategy

import (
	"fmt"

	"stock-backtest-go/internal/backtest"
)

// Config selects a strategy by name and carries the tunables of all of them,
// so one config file section can drive both single runs and comparisons. The
// json tags let API requests override the same keys the config file uses.
type Config struct {
	Name string `mapstructure:"name" json:"name"`

	ShortWindow int `mapstructure:"short_window" json:"short_window"`
	LongWindow  int `mapstructure:"long_window" json:"long_window"`

	MACDFast   int `mapstructure:"macd_fast" json:"macd_fast"`
	MACDSlow   int `mapstructure:"macd_slow" json:"macd_slow"`
	MACDSignal int `mapstructure:"macd_signal" json:"macd_signal"`

	BollPeriod int     `mapstructure:"bb_period" json:"bb_period"`
	BollStd    float64 `mapstructure:"bb_std" json:"bb_std"`

	RSIPeriod     int     `mapstructure:"rsi_period" json:"rsi_period"`
	RSIOversold   float64 `mapstructure:"rsi_oversold" json:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought" json:"rsi_overbought"`

	KDJPeriod     int     `mapstructure:"kdj_n" json:"kdj_n"`
	KDJSmoothK    int     `mapstructure:"kdj_m1" json:"kdj_m1"`
	KDJSmoothD    int     `mapstructure:"kdj_m2" json:"kdj_m2"`
	KDJOversold   float64 `mapstructure:"kdj_oversold" json:"kdj_oversold"`
	KDJOverbought float64 `mapstructure:"kdj_overbought" json:"kdj_overbought"`

	TripleShort  int `mapstructure:"triple_ma_short" json:"triple_ma_short"`
	TripleMedium int `mapstructure:"triple_ma_medium" json:"triple_ma_medium"`
	TripleLong   int `mapstructure:"triple_ma_long" json:"triple_ma_long"`

	MomentumPeriod    int     `mapstructure:"momentum_period" json:"momentum_period"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold" json:"momentum_threshold"`

	TurtleEntry int `mapstructure:"turtle_entry" json:"turtle_entry"`
	TurtleExit  int `mapstructure:"turtle_exit" json:"turtle_exit"`

	ReversionPeriod int     `mapstructure:"mean_reversion_period" json:"mean_reversion_period"`
	ReversionStd    float64 `mapstructure:"mean_reversion_std" json:"mean_reversion_std"`
}

// DefaultConfig carries the standard parameters of every built-in strategy.
func DefaultConfig() Config {
	return Config{
		Name:              "DualMovingAverage",
		ShortWindow:       10,
		LongWindow:        30,
		MACDFast:          12,
		MACDSlow:          26,
		MACDSignal:        9,
		BollPeriod:        20,
		BollStd:           2.0,
		RSIPeriod:         14,
		RSIOversold:       30,
		RSIOverbought:     70,
		KDJPeriod:         9,
		KDJSmoothK:        3,
		KDJSmoothD:        3,
		KDJOversold:       20,
		KDJOverbought:     80,
		TripleShort:       5,
		TripleMedium:      20,
		TripleLong:        60,
		MomentumPeriod:    20,
		MomentumThreshold: 0.05,
		TurtleEntry:       20,
		TurtleExit:        10,
		ReversionPeriod:   20,
		ReversionStd:      2.0,
	}
}

// FromConfig builds the strategy named by cfg.Name. The set of strategies is
// closed: adding one means adding a type and a case here.
func FromConfig(cfg Config) (backtest.Strategy, error) {
	switch cfg.Name {
	case "DualMovingAverage":
		return &DualMovingAverage{Short: cfg.ShortWindow, Long: cfg.LongWindow}, nil
	case "MACD":
		return &MACD{Fast: cfg.MACDFast, Slow: cfg.MACDSlow, Signal: cfg.MACDSignal}, nil
	case "BollingerBands":
		return &BollingerBands{Period: cfg.BollPeriod, StdDev: cfg.BollStd}, nil
	case "RSI":
		return &RSI{Period: cfg.RSIPeriod, Oversold: cfg.RSIOversold, Overbought: cfg.RSIOverbought}, nil
	case "KDJ":
		return &KDJ{
			Period:     cfg.KDJPeriod,
			SmoothK:    cfg.KDJSmoothK,
			SmoothD:    cfg.KDJSmoothD,
			Oversold:   cfg.KDJOversold,
			Overbought: cfg.KDJOverbought,
		}, nil
	case "TripleMovingAverage":
		return &TripleMovingAverage{Short: cfg.TripleShort, Medium: cfg.TripleMedium, Long: cfg.TripleLong}, nil
	case "Momentum":
		return &Momentum{Period: cfg.MomentumPeriod, Threshold: cfg.MomentumThreshold}, nil
	case "TurtleTrading":
		return &TurtleTrading{EntryPeriod: cfg.TurtleEntry, ExitPeriod: cfg.TurtleExit}, nil
	case "MeanReversion":
		return &MeanReversion{Period: cfg.ReversionPeriod, StdDev: cfg.ReversionStd}, nil
	case "Combo":
		return &Combo{
			MACDFast:      cfg.MACDFast,
			MACDSlow:      cfg.MACDSlow,
			MACDSignal:    cfg.MACDSignal,
			RSIPeriod:     cfg.RSIPeriod,
			RSIOverbought: cfg.RSIOverbought,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}

// All builds every built-in strategy with the parameters in cfg, in catalog
// order. Used by comparison runs.
func All(cfg Config) []backtest.Strategy {
	strategies := make([]backtest.Strategy, 0, len(Catalog()))
	for _, info := range Catalog() {
		c := cfg
		c.Name = info.Name
		s, err := FromConfig(c)
		if err != nil {
			continue
		}
		strategies = append(strategies, s)
	}
	return strategies
}

// Info describes one catalog entry.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Horizon     string `json:"horizon"`
}

// Catalog lists the built-in strategies.
func Catalog() []Info {
	return []Info{
		{Name: "DualMovingAverage", Description: "golden/death cross of two moving averages", Horizon: "5-30 days"},
		{Name: "MACD", Description: "DIF crossing the DEA signal line", Horizon: "3-15 days"},
		{Name: "BollingerBands", Description: "band position below 0.2 buys, above 0.8 sells", Horizon: "5-20 days"},
		{Name: "RSI", Description: "oversold and overbought threshold zones", Horizon: "3-14 days"},
		{Name: "KDJ", Description: "K/D crosses inside the J extremes", Horizon: "3-10 days"},
		{Name: "TripleMovingAverage", Description: "full bullish or bearish alignment of three averages", Horizon: "20-60 days"},
		{Name: "Momentum", Description: "rate-of-change above threshold with trend confirmation", Horizon: "20-60 days"},
		{Name: "TurtleTrading", Description: "Donchian channel breakout entries and exits", Horizon: "20-55 days"},
		{Name: "MeanReversion", Description: "z-score stretch below the mean, exit on reversion", Horizon: "10-30 days"},
		{Name: "Combo", Description: "MACD cross confirmed by the RSI zone", Horizon: "10-30 days"},
	}
}

// diffSignals turns a -1/0/+1 regime series into edge signals: any upward
// step emits a buy, any downward step a sell. Undefined bars are neutral, so
// a regime already in force on the first defined bar fires immediately.
func diffSignals(regime []int8, defined []bool) []backtest.Signal {
	signals := make([]backtest.Signal, len(regime))
	var prev int8
	for i := range regime {
		if !defined[i] {
			continue
		}
		switch {
		case regime[i] > prev:
			signals[i] = backtest.Buy
		case regime[i] < prev:
			signals[i] = backtest.Sell
		}
		prev = regime[i]
	}
	return signals
}

// dedupeSignals emits raw signals only when they differ from the previous
// bar's raw value, so a condition that stays true fires once.
func dedupeSignals(raw []int8, defined []bool) []backtest.Signal {
	signals := make([]backtest.Signal, len(raw))
	for i := range raw {
		if i == 0 || !defined[i] {
			continue
		}
		if raw[i] != raw[i-1] {
			signals[i] = backtest.Signal(raw[i])
		}
	}
	return signals
}

func closes(bars []backtest.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highs(bars []backtest.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []backtest.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
