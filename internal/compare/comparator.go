// Package compare batch-runs every registered strategy over one bar series
// and ranks the outcomes.
package compare

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"stock-backtest-go/internal/analyzer"
	"stock-backtest-go/internal/backtest"
)

// Entry is one strategy's ranked outcome.
type Entry struct {
	Strategy string           `json:"strategy"`
	Metrics  analyzer.Metrics `json:"metrics"`
}

// Comparator runs a set of strategies against the same bars under the same
// ledger config. Strategies that fail are logged and dropped from the
// ranking; the run fails only when nothing succeeds.
type Comparator struct {
	analyzer *analyzer.Analyzer
	logger   *zap.Logger
}

func NewComparator(a *analyzer.Analyzer, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{analyzer: a, logger: logger.Named("compare")}
}

// Run backtests every strategy over bars and returns entries sorted by total
// return, best first.
func (c *Comparator) Run(bars []backtest.Bar, strategies []backtest.Strategy, cfg backtest.Config) ([]Entry, error) {
	engine, err := backtest.NewEngine(cfg, c.logger)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(strategies))
	for _, strat := range strategies {
		signals, err := strat.GenerateSignals(bars)
		if err != nil {
			c.logger.Warn("strategy skipped", zap.String("strategy", strat.Name()), zap.Error(err))
			continue
		}
		res, err := engine.Run(bars, signals)
		if err != nil {
			c.logger.Warn("backtest failed", zap.String("strategy", strat.Name()), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{
			Strategy: strat.Name(),
			Metrics:  c.analyzer.Compute(res, engine.Config().InitialCapital),
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no strategy produced a result over %d bars", len(bars))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Metrics.TotalReturn > entries[j].Metrics.TotalReturn
	})
	return entries, nil
}

// WriteTable renders the ranking as a fixed-width text table.
func WriteTable(w io.Writer, entries []Entry) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "%-4s %-22s %10s %10s %9s %8s %8s %7s %7s\n",
		"#", "Strategy", "Return", "Annual", "MaxDD", "Sharpe", "Calmar", "WinRate", "Trades")
	for i, e := range entries {
		m := e.Metrics
		fmt.Fprintf(&b, "%-4d %-22s %9.2f%% %9.2f%% %8.2f%% %8.3f %8.3f %6.1f%% %7d\n",
			i+1, e.Strategy,
			m.TotalReturn*100, m.AnnualizedReturn*100, m.MaxDrawdown*100,
			m.SharpeRatio, m.CalmarRatio, m.WinRate*100,
			m.BuyCount+m.SellCount)
	}
	if len(entries) > 0 {
		best := entries[0]
		fmt.Fprintf(&b, "\nbest: %s (return %.2f%%, sharpe %.3f, max drawdown %.2f%%)\n",
			best.Strategy, best.Metrics.TotalReturn*100, best.Metrics.SharpeRatio, best.Metrics.MaxDrawdown*100)
	}

	_, err := w.Write(b.Bytes())
	return err
}
