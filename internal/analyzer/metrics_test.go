package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-backtest-go/internal/backtest"
)

func mkEquity(t *testing.T, values ...float64) []backtest.EquityPoint {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]backtest.EquityPoint, len(values))
	for i, v := range values {
		points[i] = backtest.EquityPoint{Date: base.AddDate(0, 0, i), Cash: v, Equity: v}
	}
	return points
}

func TestComputeMetrics(t *testing.T) {
	res := &backtest.Result{
		Equity: mkEquity(t, 100000, 110000, 99000, 108900),
		Trades: []backtest.TradeRecord{
			{Direction: backtest.DirectionBuy, Commission: 29.70, SlippageCost: 0.99},
			{Direction: backtest.DirectionSell, Commission: 30, StampDuty: 100, SlippageCost: 1},
		},
	}

	m := New(0.03, 252).Compute(res, 100000)

	assert.InDelta(t, 100000.0, m.InitialCapital, 1e-9)
	assert.InDelta(t, 108900.0, m.FinalEquity, 1e-9)
	assert.InDelta(t, 8900.0, m.TotalProfit, 1e-9)
	assert.InDelta(t, 0.089, m.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.089, 252.0/4.0)-1, m.AnnualizedReturn, 1e-9)

	// Daily returns are 0.10, -0.10, 0.10.
	mean := 0.1 / 3
	std := math.Sqrt((2*math.Pow(0.1-mean, 2) + math.Pow(-0.1-mean, 2)) / 2)
	assert.InDelta(t, std, m.DailyVolatility, 1e-12)
	assert.InDelta(t, std*math.Sqrt(252), m.AnnualizedVolatility, 1e-12)
	assert.InDelta(t, (mean-0.03/252)/std*math.Sqrt(252), m.SharpeRatio, 1e-9)

	assert.InDelta(t, -0.10, m.MaxDrawdown, 1e-12)
	assert.Equal(t, 1, m.DrawdownDays)
	assert.InDelta(t, m.AnnualizedReturn/0.10, m.CalmarRatio, 1e-9)

	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-12)
	assert.InDelta(t, 1.0, m.ProfitLossRatio, 1e-12)

	assert.Equal(t, 1, m.BuyCount)
	assert.Equal(t, 1, m.SellCount)
	assert.InDelta(t, 161.69, m.TotalCosts, 1e-9)
	assert.Equal(t, 4, m.TradingDays)
}

func TestComputeMetricsFlatCurve(t *testing.T) {
	res := &backtest.Result{Equity: mkEquity(t, 100000, 100000, 100000)}

	m := New(0.03, 252).Compute(res, 100000)

	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.AnnualizedReturn)
	assert.Zero(t, m.DailyVolatility)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.DrawdownDays)
	assert.Zero(t, m.CalmarRatio)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitLossRatio)
	assert.False(t, math.IsNaN(m.AnnualizedVolatility))
}

func TestComputeMetricsEmptyAndShortRuns(t *testing.T) {
	a := New(0.03, 252)

	assert.Equal(t, Metrics{}, a.Compute(nil, 100000))
	assert.Equal(t, Metrics{}, a.Compute(&backtest.Result{}, 100000))

	m := a.Compute(&backtest.Result{Equity: mkEquity(t, 105000)}, 100000)
	assert.InDelta(t, 0.05, m.TotalReturn, 1e-12)
	assert.Zero(t, m.DailyVolatility)
	assert.Zero(t, m.SharpeRatio)
	assert.Equal(t, 1, m.TradingDays)
}

func TestDrawdownDurationUsesCalendarDays(t *testing.T) {
	base := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	res := &backtest.Result{Equity: []backtest.EquityPoint{
		{Date: base, Equity: 100000},
		{Date: base.AddDate(0, 0, 3), Equity: 90000},
		{Date: base.AddDate(0, 0, 4), Equity: 95000},
	}}

	m := New(0, 252).Compute(res, 100000)

	require.InDelta(t, -0.10, m.MaxDrawdown, 1e-12)
	assert.Equal(t, 3, m.DrawdownDays)
}

func TestComputeMetricsAllLosingDays(t *testing.T) {
	res := &backtest.Result{Equity: mkEquity(t, 100000, 95000, 90000)}

	m := New(0.03, 252).Compute(res, 100000)

	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitLossRatio)
	assert.Negative(t, m.MaxDrawdown)
}

func TestNewDefaultsTradingDays(t *testing.T) {
	a := New(0.03, 0)
	m := a.Compute(&backtest.Result{Equity: mkEquity(t, 100000, 101000)}, 100000)
	assert.InDelta(t, math.Pow(1.01, 126)-1, m.AnnualizedReturn, 1e-9)
}
