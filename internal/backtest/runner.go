package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NameFunc resolves a ticker to a display name. A failure is not fatal; the
// ticker itself is used instead.
type NameFunc func(ctx context.Context, ticker string) (string, error)

// TickerRun is the outcome of one ticker's backtest. Err is set when the
// fetch, the signal generation or the simulation failed; the other tickers
// are unaffected.
type TickerRun struct {
	Ticker string
	Name   string
	Bars   []Bar
	Result *Result
	Err    error
}

// Runner executes the same strategy over several tickers concurrently, one
// goroutine and one fresh ledger per ticker.
type Runner struct {
	source  BarSource
	resolve NameFunc
	logger  *zap.Logger
}

// NewRunner builds a runner over the given bar source. resolve may be nil.
func NewRunner(source BarSource, resolve NameFunc, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{source: source, resolve: resolve, logger: logger.Named("runner")}
}

// RunAll backtests strat over every ticker between start and end and returns
// one TickerRun per ticker, in input order. Only an invalid config aborts
// the whole call.
func (r *Runner) RunAll(ctx context.Context, tickers []string, start, end time.Time, strat Strategy, cfg Config) ([]TickerRun, error) {
	engine, err := NewEngine(cfg, r.logger)
	if err != nil {
		return nil, err
	}

	type indexed struct {
		i   int
		run TickerRun
	}

	var wg sync.WaitGroup
	results := make(chan indexed, len(tickers))

	for i, t := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			results <- indexed{i: i, run: r.runOne(ctx, engine, ticker, start, end, strat)}
		}(i, t)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	runs := make([]TickerRun, len(tickers))
	for res := range results {
		runs[res.i] = res.run
	}
	return runs, nil
}

func (r *Runner) runOne(ctx context.Context, engine *Engine, ticker string, start, end time.Time, strat Strategy) TickerRun {
	run := TickerRun{Ticker: ticker, Name: ticker}

	if r.resolve != nil {
		if name, err := r.resolve(ctx, ticker); err == nil && name != "" {
			run.Name = name
		} else if err != nil {
			r.logger.Debug("name lookup failed", zap.String("ticker", ticker), zap.Error(err))
		}
	}

	bars, err := r.source.DailyBars(ctx, ticker, start, end)
	if err != nil {
		run.Err = fmt.Errorf("fetch %s: %w", ticker, err)
		return run
	}
	run.Bars = bars

	signals, err := strat.GenerateSignals(bars)
	if err != nil {
		run.Err = fmt.Errorf("signals %s: %w", ticker, err)
		return run
	}

	result, err := engine.Run(bars, signals)
	if err != nil {
		run.Err = fmt.Errorf("simulate %s: %w", ticker, err)
		return run
	}
	run.Result = result

	r.logger.Info("ticker backtest finished",
		zap.String("ticker", ticker),
		zap.String("strategy", strat.Name()),
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_equity", result.FinalEquity()))
	return run
}
