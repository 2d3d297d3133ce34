package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBars(closes ...float64) []Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10000}
	}
	return bars
}

// 100000 at a 10.00 close with 0.03% commission and no slippage buys exactly
// 99 lots: 9900 shares for 99000 plus 29.70 commission, leaving 970.30.
func TestLedgerBuySizesWithinBudget(t *testing.T) {
	cfg := Config{
		InitialCapital:   100000,
		CommissionRate:   0.0003,
		StampDutyRate:    0.001,
		StampDutySide:    StampDutySell,
		SlippageRate:     0,
		PositionFraction: 1.0,
		LotSize:          100,
	}
	ledger := NewLedger(cfg)

	trade, notice := ledger.Apply(mkBars(10.0)[0], Buy)
	require.Nil(t, notice)
	require.NotNil(t, trade)

	assert.Equal(t, DirectionBuy, trade.Direction)
	assert.Equal(t, int64(9900), trade.Quantity)
	assert.InDelta(t, 10.0, trade.Price, 1e-12)
	assert.InDelta(t, 29.70, trade.Commission, 1e-9)
	assert.Zero(t, trade.StampDuty)
	assert.Zero(t, trade.SlippageCost)
	assert.InDelta(t, 970.30, trade.CashAfter, 1e-9)
	assert.Equal(t, int64(9900), ledger.Shares())
	assert.GreaterOrEqual(t, ledger.Cash(), 0.0)
}

func TestLedgerBuyInsufficientFunds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialCapital = 500 // one lot at 10 costs over 1000
	ledger := NewLedger(cfg)

	trade, notice := ledger.Apply(mkBars(10.0)[0], Buy)
	assert.Nil(t, trade)
	require.NotNil(t, notice)
	assert.Equal(t, NoticeInsufficientFunds, notice.Kind)
	assert.Equal(t, 500.0, ledger.Cash())
	assert.Zero(t, ledger.Shares())
}

func TestLedgerBuyWhileHoldingIsIgnored(t *testing.T) {
	cfg := DefaultConfig()
	ledger := NewLedger(cfg)
	bars := mkBars(10.0, 10.5)

	first, notice := ledger.Apply(bars[0], Buy)
	require.NotNil(t, first)
	require.Nil(t, notice)
	cash, shares := ledger.Cash(), ledger.Shares()

	second, notice := ledger.Apply(bars[1], Buy)
	assert.Nil(t, second)
	assert.Nil(t, notice)
	assert.Equal(t, cash, ledger.Cash())
	assert.Equal(t, shares, ledger.Shares())
}

func TestLedgerSellWithoutPosition(t *testing.T) {
	ledger := NewLedger(DefaultConfig())

	trade, notice := ledger.Apply(mkBars(10.0)[0], Sell)
	assert.Nil(t, trade)
	require.NotNil(t, notice)
	assert.Equal(t, NoticeNoPosition, notice.Kind)
	assert.Equal(t, DefaultConfig().InitialCapital, ledger.Cash())
}

func TestLedgerSellLiquidatesEverything(t *testing.T) {
	cfg := DefaultConfig()
	ledger := NewLedger(cfg)
	bars := mkBars(10.0, 11.0)

	buy, _ := ledger.Apply(bars[0], Buy)
	require.NotNil(t, buy)

	sell, notice := ledger.Apply(bars[1], Sell)
	require.Nil(t, notice)
	require.NotNil(t, sell)

	assert.Equal(t, DirectionSell, sell.Direction)
	assert.Equal(t, buy.Quantity, sell.Quantity)
	assert.Zero(t, ledger.Shares())
	assert.Zero(t, ledger.EntryPrice())
	assert.False(t, sell.Forced)

	// proceeds = notional - commission - sell-side duty
	price := 11.0 * (1 - cfg.SlippageRate)
	notional := price * float64(sell.Quantity)
	assert.InDelta(t, price, sell.Price, 1e-12)
	assert.InDelta(t, notional*cfg.CommissionRate, sell.Commission, 1e-9)
	assert.InDelta(t, notional*cfg.StampDutyRate, sell.StampDuty, 1e-9)
	assert.InDelta(t, buy.CashAfter+notional-sell.Commission-sell.StampDuty, ledger.Cash(), 1e-9)
}

func TestLedgerSlippageIsAdverse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRate = 0.001
	ledger := NewLedger(cfg)
	bars := mkBars(10.0, 10.0)

	buy, _ := ledger.Apply(bars[0], Buy)
	require.NotNil(t, buy)
	assert.InDelta(t, 10.01, buy.Price, 1e-9)
	assert.InDelta(t, 0.01*float64(buy.Quantity), buy.SlippageCost, 1e-9)

	sell, _ := ledger.Apply(bars[1], Sell)
	require.NotNil(t, sell)
	assert.InDelta(t, 9.99, sell.Price, 1e-9)
	assert.InDelta(t, 0.01*float64(sell.Quantity), sell.SlippageCost, 1e-9)
}

func TestLedgerBuySideDutyShrinksAffordableQuantity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRate = 0
	cfg.StampDutySide = StampDutyBoth
	cfg.StampDutyRate = 0.1 // exaggerated so the lot count visibly drops
	ledger := NewLedger(cfg)

	trade, notice := ledger.Apply(mkBars(10.0)[0], Buy)
	require.Nil(t, notice)
	require.NotNil(t, trade)

	// 100000 / (10 * 1.1003) = 9088.4 shares, floored to 90 lots
	assert.Equal(t, int64(9000), trade.Quantity)
	assert.InDelta(t, 9000.0, trade.StampDuty, 1e-9)
	assert.GreaterOrEqual(t, ledger.Cash(), 0.0)
}

func TestLedgerPositionFraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRate = 0
	cfg.PositionFraction = 0.5
	ledger := NewLedger(cfg)

	trade, notice := ledger.Apply(mkBars(10.0)[0], Buy)
	require.Nil(t, notice)
	require.NotNil(t, trade)

	// budget 50000 -> 49 lots at 10.003 per share
	assert.Equal(t, int64(4900), trade.Quantity)
}

func TestLedgerForceClose(t *testing.T) {
	cfg := DefaultConfig()
	ledger := NewLedger(cfg)
	bars := mkBars(10.0, 9.0)

	assert.Nil(t, ledger.ForceClose(bars[0]), "flat ledger has nothing to close")

	buy, _ := ledger.Apply(bars[0], Buy)
	require.NotNil(t, buy)

	forced := ledger.ForceClose(bars[1])
	require.NotNil(t, forced)
	assert.True(t, forced.Forced)
	assert.Equal(t, DirectionSell, forced.Direction)
	assert.InDelta(t, 9.0*(1-cfg.SlippageRate), forced.Price, 1e-12)
	assert.Zero(t, ledger.Shares())
}

func TestLedgerQuantitiesAreLotMultiples(t *testing.T) {
	cfg := DefaultConfig()
	ledger := NewLedger(cfg)

	for _, bar := range mkBars(10.0, 12.3, 7.7, 15.9) {
		ledger.Apply(bar, Buy)
		require.Zero(t, ledger.Shares()%cfg.LotSize)
		ledger.Apply(bar, Sell)
		require.Zero(t, ledger.Shares())
	}
}

func TestLedgerSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageRate = 0
	ledger := NewLedger(cfg)
	bars := mkBars(10.0, 12.0)

	point := ledger.Snapshot(bars[0])
	assert.Equal(t, cfg.InitialCapital, point.Equity)
	assert.Zero(t, point.PositionValue)

	buy, _ := ledger.Apply(bars[0], Buy)
	require.NotNil(t, buy)

	point = ledger.Snapshot(bars[1])
	assert.InDelta(t, float64(buy.Quantity)*12.0, point.PositionValue, 1e-9)
	assert.InDelta(t, ledger.Cash()+point.PositionValue, point.Equity, 1e-9)
	assert.Equal(t, bars[1].Date, point.Date)
}
