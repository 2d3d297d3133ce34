// Package analyzer derives performance metrics, reports and exports from a
// finished backtest run.
package analyzer

import (
	"math"

	"stock-backtest-go/internal/backtest"
)

// Metrics summarizes one equity curve. Ratios are plain fractions (0.05 is
// five percent); MaxDrawdown is negative or zero.
type Metrics struct {
	InitialCapital       float64 `json:"initial_capital"`
	FinalEquity          float64 `json:"final_equity"`
	TotalProfit          float64 `json:"total_profit"`
	TotalReturn          float64 `json:"total_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	DailyVolatility      float64 `json:"daily_volatility"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	DrawdownDays         int     `json:"drawdown_days"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	WinRate              float64 `json:"win_rate"`
	ProfitLossRatio      float64 `json:"profit_loss_ratio"`
	BuyCount             int     `json:"buy_count"`
	SellCount            int     `json:"sell_count"`
	TotalCosts           float64 `json:"total_costs"`
	TradingDays          int     `json:"trading_days"`
}

// Analyzer computes metrics under fixed market assumptions.
type Analyzer struct {
	riskFreeRate float64
	tradingDays  float64
}

// New builds an analyzer. Non-positive tradingDays falls back to 252; the
// risk-free rate is annual.
func New(riskFreeRate float64, tradingDays int) *Analyzer {
	if tradingDays <= 0 {
		tradingDays = 252
	}
	return &Analyzer{riskFreeRate: riskFreeRate, tradingDays: float64(tradingDays)}
}

// Compute derives the full metric set from a run. An empty equity curve
// yields the zero Metrics.
func (a *Analyzer) Compute(res *backtest.Result, initialCapital float64) Metrics {
	if res == nil || len(res.Equity) == 0 {
		return Metrics{}
	}

	equity := res.Equity
	final := equity[len(equity)-1].Equity
	m := Metrics{
		InitialCapital: initialCapital,
		FinalEquity:    final,
		TotalProfit:    final - initialCapital,
		TotalReturn:    (final - initialCapital) / initialCapital,
		TradingDays:    len(equity),
	}

	years := float64(len(equity)) / a.tradingDays
	if years > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 1/years) - 1
	}

	returns := dailyReturns(equity)
	mean, std := meanStd(returns)
	m.DailyVolatility = std
	m.AnnualizedVolatility = std * math.Sqrt(a.tradingDays)
	if std > 0 {
		m.SharpeRatio = (mean - a.riskFreeRate/a.tradingDays) / std * math.Sqrt(a.tradingDays)
	}

	m.MaxDrawdown, m.DrawdownDays = maxDrawdown(equity)
	if m.MaxDrawdown != 0 {
		m.CalmarRatio = m.AnnualizedReturn / math.Abs(m.MaxDrawdown)
	}

	m.WinRate, m.ProfitLossRatio = winStats(returns)

	for _, t := range res.Trades {
		m.TotalCosts += t.Commission + t.StampDuty + t.SlippageCost
		if t.Direction == backtest.DirectionBuy {
			m.BuyCount++
		} else {
			m.SellCount++
		}
	}
	return m
}

func dailyReturns(equity []backtest.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, equity[i].Equity/prev-1)
	}
	return out
}

// meanStd returns the mean and sample standard deviation.
func meanStd(x []float64) (mean, std float64) {
	if len(x) == 0 {
		return 0, 0
	}
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	if len(x) < 2 {
		return mean, 0
	}
	var sum2 float64
	for _, v := range x {
		d := v - mean
		sum2 += d * d
	}
	return mean, math.Sqrt(sum2 / float64(len(x)-1))
}

// maxDrawdown returns the deepest peak-to-trough loss as a negative fraction
// and the calendar days between that peak and its trough.
func maxDrawdown(equity []backtest.EquityPoint) (float64, int) {
	peakIdx, troughIdx := 0, 0
	worst := 0.0
	curPeak := 0

	for i, p := range equity {
		if p.Equity > equity[curPeak].Equity {
			curPeak = i
		}
		if equity[curPeak].Equity <= 0 {
			continue
		}
		dd := (p.Equity - equity[curPeak].Equity) / equity[curPeak].Equity
		if dd < worst {
			worst = dd
			peakIdx = curPeak
			troughIdx = i
		}
	}
	if worst == 0 {
		return 0, 0
	}
	days := int(equity[troughIdx].Date.Sub(equity[peakIdx].Date).Hours() / 24)
	return worst, days
}

// winStats reports the share of positive trading days and the ratio of the
// average winning day to the average losing day.
func winStats(returns []float64) (winRate, profitLossRatio float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	var wins, losses int
	var winSum, lossSum float64
	for _, r := range returns {
		if r > 0 {
			wins++
			winSum += r
		} else if r < 0 {
			losses++
			lossSum -= r
		}
	}
	winRate = float64(wins) / float64(len(returns))
	if losses > 0 && lossSum > 0 {
		avgWin := 0.0
		if wins > 0 {
			avgWin = winSum / float64(wins)
		}
		profitLossRatio = avgWin / (lossSum / float64(losses))
	}
	return winRate, profitLossRatio
}
