package backtest

import (
	"fmt"
	"math"
)

// Ledger tracks the cash and single long position of one simulated account.
// It is long/flat only: a buy opens a position sized to the configured
// budget, a sell liquidates everything. Methods assume a validated Config.
type Ledger struct {
	cfg        Config
	cash       float64
	shares     int64
	entryPrice float64
}

func NewLedger(cfg Config) *Ledger {
	return &Ledger{cfg: cfg, cash: cfg.InitialCapital}
}

func (l *Ledger) Cash() float64       { return l.cash }
func (l *Ledger) Shares() int64       { return l.shares }
func (l *Ledger) EntryPrice() float64 { return l.entryPrice }

// Apply executes one day's signal against the current state. It returns the
// resulting trade, or a notice when the signal cannot be honored. A buy while
// already long and any hold are silent no-ops.
func (l *Ledger) Apply(bar Bar, sig Signal) (*TradeRecord, *Notice) {
	switch sig {
	case Buy:
		if l.shares > 0 {
			return nil, nil
		}
		return l.buy(bar)
	case Sell:
		if l.shares == 0 {
			return nil, &Notice{
				Date:   bar.Date,
				Kind:   NoticeNoPosition,
				Detail: "sell signal with no open position",
			}
		}
		return l.sell(bar, false), nil
	default:
		return nil, nil
	}
}

// ForceClose liquidates any open position at the bar's close with the same
// slippage and costs as a signal-driven sell. Returns nil when already flat.
func (l *Ledger) ForceClose(bar Bar) *TradeRecord {
	if l.shares == 0 {
		return nil
	}
	return l.sell(bar, true)
}

// Snapshot marks the account to market at the bar's raw close.
func (l *Ledger) Snapshot(bar Bar) EquityPoint {
	pv := float64(l.shares) * bar.Close
	return EquityPoint{
		Date:          bar.Date,
		Cash:          l.cash,
		PositionValue: pv,
		Equity:        l.cash + pv,
	}
}

// buy sizes the position so that notional plus commission plus any buy-side
// stamp duty fits inside the budget, then floors to a whole lot count.
func (l *Ledger) buy(bar Bar) (*TradeRecord, *Notice) {
	price := l.cfg.effectiveBuyPrice(bar.Close)
	budget := l.cash * l.cfg.PositionFraction
	perShare := price * (1 + l.cfg.buyCostRate())
	lots := math.Floor(budget / perShare / float64(l.cfg.LotSize))
	qty := int64(lots) * l.cfg.LotSize
	if qty <= 0 {
		return nil, &Notice{
			Date:   bar.Date,
			Kind:   NoticeInsufficientFunds,
			Detail: fmt.Sprintf("budget %.2f cannot cover one lot at %.4f", budget, price),
		}
	}

	notional := price * float64(qty)
	fee := l.cfg.commission(notional)
	duty := l.cfg.stampDuty(notional, DirectionBuy)
	l.cash -= notional + fee + duty
	l.shares = qty
	l.entryPrice = price

	return &TradeRecord{
		Date:         bar.Date,
		Direction:    DirectionBuy,
		Price:        price,
		Quantity:     qty,
		Commission:   fee,
		StampDuty:    duty,
		SlippageCost: (price - bar.Close) * float64(qty),
		CashAfter:    l.cash,
		SharesAfter:  l.shares,
	}, nil
}

// sell liquidates the full position and credits the net proceeds.
func (l *Ledger) sell(bar Bar, forced bool) *TradeRecord {
	price := l.cfg.effectiveSellPrice(bar.Close)
	qty := l.shares
	notional := price * float64(qty)
	fee := l.cfg.commission(notional)
	duty := l.cfg.stampDuty(notional, DirectionSell)
	l.cash += notional - fee - duty
	l.shares = 0
	l.entryPrice = 0

	return &TradeRecord{
		Date:         bar.Date,
		Direction:    DirectionSell,
		Price:        price,
		Quantity:     qty,
		Commission:   fee,
		StampDuty:    duty,
		SlippageCost: (bar.Close - price) * float64(qty),
		CashAfter:    l.cash,
		SharesAfter:  0,
		Forced:       forced,
	}
}
