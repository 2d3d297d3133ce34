package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCapital = -1

	engine, err := NewEngine(cfg, nil)
	assert.Nil(t, engine)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "initial_capital", cfgErr.Field)
}

// A sell signal with no position produces a notice, no trade, and still
// exactly one equity point for the day.
func TestRunSellWhileFlat(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	bars := mkBars(10.0)

	res, err := engine.Run(bars, []Signal{Sell})
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, NoticeNoPosition, res.Notices[0].Kind)
	assert.Equal(t, bars[0].Date, res.Notices[0].Date)

	require.Len(t, res.Equity, 1)
	assert.Equal(t, DefaultConfig().InitialCapital, res.Equity[0].Equity)
}

// A position still open when the series ends is force-closed on the last bar,
// so the final equity point is all cash.
func TestRunForcedLiquidationOnFinalBar(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	bars := mkBars(10.0, 10.2, 10.4)

	res, err := engine.Run(bars, []Signal{Buy, Hold, Hold})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, DirectionBuy, res.Trades[0].Direction)
	assert.False(t, res.Trades[0].Forced)

	forced := res.Trades[1]
	assert.Equal(t, DirectionSell, forced.Direction)
	assert.True(t, forced.Forced)
	assert.Equal(t, bars[2].Date, forced.Date)
	assert.InDelta(t, 10.4*(1-DefaultConfig().SlippageRate), forced.Price, 1e-12)

	require.Len(t, res.Equity, 3)
	last := res.Equity[2]
	assert.Zero(t, last.PositionValue)
	assert.Equal(t, last.Cash, last.Equity)
	assert.Empty(t, res.Notices)
}

func TestRunEmitsOneEquityPointPerBar(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	bars := mkBars(10, 11, 9, 12, 8, 13, 10, 11)
	signals := []Signal{Sell, Buy, Buy, Hold, Sell, Sell, Buy, Hold}

	res, err := engine.Run(bars, signals)
	require.NoError(t, err)

	assert.Len(t, res.Equity, len(bars))
	for i, p := range res.Equity {
		assert.Equal(t, bars[i].Date, p.Date)
		assert.GreaterOrEqual(t, p.Cash, 0.0)
		assert.InDelta(t, p.Cash+p.PositionValue, p.Equity, 1e-9)
	}
	for _, tr := range res.Trades {
		assert.Zero(t, tr.Quantity%100)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	bars := mkBars(10, 11, 9, 12, 8)
	signals := []Signal{Buy, Hold, Sell, Buy, Hold}

	first, err := engine.Run(bars, signals)
	require.NoError(t, err)
	second, err := engine.Run(bars, signals)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunDataErrors(t *testing.T) {
	dup := mkBars(10, 11)
	dup[1].Date = dup[0].Date
	backwards := mkBars(10, 11)
	backwards[1].Date = backwards[0].Date.AddDate(0, 0, -5)
	nan := mkBars(10, 11)
	nan[1].Close = math.NaN()
	zero := mkBars(10, 0)
	negative := mkBars(10, -2)
	undated := mkBars(10)
	undated[0].Date = time.Time{}

	testCases := []struct {
		name    string
		bars    []Bar
		signals []Signal
	}{
		{name: "empty series", bars: nil, signals: nil},
		{name: "signal count mismatch", bars: mkBars(10, 11), signals: []Signal{Hold}},
		{name: "duplicate date", bars: dup, signals: []Signal{Hold, Hold}},
		{name: "descending date", bars: backwards, signals: []Signal{Hold, Hold}},
		{name: "nan close", bars: nan, signals: []Signal{Hold, Hold}},
		{name: "zero close", bars: zero, signals: []Signal{Hold, Hold}},
		{name: "negative close", bars: negative, signals: []Signal{Hold, Hold}},
		{name: "zero date", bars: undated, signals: []Signal{Hold}},
	}

	engine := newTestEngine(t, DefaultConfig())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Run(tc.bars, tc.signals)
			assert.Nil(t, res, "fatal errors must not leak partial results")

			var dataErr *DataError
			assert.ErrorAs(t, err, &dataErr)
		})
	}
}

// Costs only ever reduce the final equity: a frictionless run of the same
// signals finishes at or above a run with commission, duty and slippage.
func TestRunCostsAreMonotonic(t *testing.T) {
	bars := mkBars(10, 11, 10.5, 12, 11.5, 13)
	signals := []Signal{Buy, Hold, Sell, Buy, Hold, Hold}

	free := DefaultConfig()
	free.CommissionRate = 0
	free.StampDutyRate = 0
	free.SlippageRate = 0

	costly := DefaultConfig()
	costly.CommissionRate = 0.002
	costly.StampDutyRate = 0.002
	costly.SlippageRate = 0.002

	freeRes, err := newTestEngine(t, free).Run(bars, signals)
	require.NoError(t, err)
	costlyRes, err := newTestEngine(t, costly).Run(bars, signals)
	require.NoError(t, err)

	assert.Greater(t, freeRes.FinalEquity(), costlyRes.FinalEquity())
}

func TestRunBuyOnFinalBarIsClosedSameDay(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	bars := mkBars(10.0, 10.0)

	res, err := engine.Run(bars, []Signal{Hold, Buy})
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, DirectionBuy, res.Trades[0].Direction)
	assert.True(t, res.Trades[1].Forced)
	assert.Equal(t, res.Trades[0].Date, res.Trades[1].Date)
	assert.Zero(t, res.Equity[len(res.Equity)-1].PositionValue)
}
