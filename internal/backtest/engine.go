package backtest

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Engine folds a signal series over a bar series under A-share trading
// rules: same-day execution at the close, long/flat positions only, forced
// liquidation on the final bar. An Engine is safe for repeated Runs; each
// Run starts from a fresh ledger.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// NewEngine validates cfg and freezes it into the engine. A nil logger
// disables logging.
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger.Named("engine")}, nil
}

// Config returns the engine's frozen configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run simulates signals against bars. Signals execute the same day at the
// close. Exactly one equity point is emitted per bar, including days whose
// signal produced only a notice, and a position still open on the final bar
// is force-closed before that day's point so the curve ends fully in cash.
// A data-quality failure aborts the run with a *DataError; partial results
// are discarded.
func (e *Engine) Run(bars []Bar, signals []Signal) (*Result, error) {
	if len(bars) == 0 {
		return nil, &DataError{Reason: "empty bar series"}
	}
	if len(signals) != len(bars) {
		return nil, &DataError{Reason: fmt.Sprintf("%d signals for %d bars", len(signals), len(bars))}
	}

	ledger := NewLedger(e.cfg)
	res := &Result{Equity: make([]EquityPoint, 0, len(bars))}

	var prev time.Time
	for i, bar := range bars {
		if err := validateBar(bar, prev); err != nil {
			e.logger.Error("aborting run", zap.Error(err))
			return nil, err
		}
		prev = bar.Date

		trade, notice := ledger.Apply(bar, signals[i])
		if trade != nil {
			res.Trades = append(res.Trades, *trade)
			e.logTrade(trade)
		}
		if notice != nil {
			res.Notices = append(res.Notices, *notice)
			e.logger.Warn("signal not executed",
				zap.Time("date", notice.Date),
				zap.String("kind", string(notice.Kind)),
				zap.String("detail", notice.Detail))
		}

		if i == len(bars)-1 {
			if forced := ledger.ForceClose(bar); forced != nil {
				res.Trades = append(res.Trades, *forced)
				e.logTrade(forced)
			}
		}

		res.Equity = append(res.Equity, ledger.Snapshot(bar))
	}

	e.logger.Info("run complete",
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(res.Trades)),
		zap.Int("notices", len(res.Notices)),
		zap.Float64("final_equity", res.FinalEquity()))
	return res, nil
}

func (e *Engine) logTrade(t *TradeRecord) {
	e.logger.Info("trade executed",
		zap.Time("date", t.Date),
		zap.String("direction", string(t.Direction)),
		zap.Float64("price", t.Price),
		zap.Int64("quantity", t.Quantity),
		zap.Float64("cash_after", t.CashAfter),
		zap.Bool("forced", t.Forced))
}

func validateBar(bar Bar, prev time.Time) error {
	if bar.Date.IsZero() {
		return &DataError{Reason: "bar with zero date"}
	}
	if !prev.IsZero() && !bar.Date.After(prev) {
		return &DataError{Date: bar.Date, Reason: "dates not strictly ascending"}
	}
	if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
		return &DataError{Date: bar.Date, Reason: fmt.Sprintf("non-positive or non-finite close %v", bar.Close)}
	}
	return nil
}
