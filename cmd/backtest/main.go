package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stock-backtest-go/internal/analyzer"
	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/compare"
	"stock-backtest-go/internal/config"
	"stock-backtest-go/internal/database"
	"stock-backtest-go/internal/logger"
	"stock-backtest-go/internal/provider"
	"stock-backtest-go/internal/strategy"
)

func main() {
	configPath := flag.String("config", "./configs", "directory containing config.yml")
	compareAll := flag.Bool("compare", false, "run every strategy and print the ranking instead of a single backtest")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// The logger is not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.Strings("tickers", cfg.Data.Tickers))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("shutdown signal received")
		cancel()
	}()

	source := newBarSource(cfg, log)
	engCfg := cfg.Backtest.EngineConfig()
	if err := engCfg.Validate(); err != nil {
		log.Fatal("invalid backtest config", zap.Error(err))
	}

	start, end, err := cfg.Data.DateRange()
	if err != nil {
		log.Fatal("invalid date range", zap.Error(err))
	}

	an := analyzer.New(cfg.Analysis.RiskFreeRate, cfg.Analysis.TradingDays)

	run := runConfig{cfg: cfg, source: source, analyzer: an, engCfg: engCfg, start: start, end: end}
	if *compareAll {
		runComparison(ctx, run, log)
		return
	}
	runBacktests(ctx, run, log)
}

// runConfig bundles everything a run mode needs.
type runConfig struct {
	cfg      config.Config
	source   backtest.BarSource
	analyzer *analyzer.Analyzer
	engCfg   backtest.Config
	start    time.Time
	end      time.Time
}

// newBarSource builds the eastmoney client, wrapped in the database cache
// when enabled.
func newBarSource(cfg config.Config, log *zap.Logger) backtest.BarSource {
	var source backtest.BarSource = provider.NewEastmoneyClient(cfg.Data.RateLimit, cfg.Data.RateLimitBurst, log)

	if !cfg.Data.CacheEnabled {
		return source
	}
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Warn("bar cache unavailable, fetching directly", zap.Error(err))
		return source
	}
	return provider.NewCachingSource(source, db, log)
}

func runBacktests(ctx context.Context, rc runConfig, log *zap.Logger) {
	strat, err := strategy.FromConfig(rc.cfg.Strategy)
	if err != nil {
		log.Fatal("invalid strategy config", zap.Error(err))
	}

	sina := provider.NewSinaClient(log)
	runner := backtest.NewRunner(rc.source, sina.NameFunc(), log)

	runs, err := runner.RunAll(ctx, rc.cfg.Data.Tickers, rc.start, rc.end, strat, rc.engCfg)
	if err != nil {
		log.Fatal("backtest run failed", zap.Error(err))
	}

	failures := 0
	for _, run := range runs {
		if run.Err != nil {
			failures++
			log.Error("ticker failed", zap.String("ticker", run.Ticker), zap.Error(run.Err))
			continue
		}

		title := fmt.Sprintf("%s (%s) %s", run.Name, run.Ticker, strat.Name())
		metrics := rc.analyzer.Compute(run.Result, rc.engCfg.InitialCapital)
		if err := analyzer.WriteReport(os.Stdout, title, metrics); err != nil {
			log.Error("report write failed", zap.Error(err))
		}
		for _, n := range run.Result.Notices {
			log.Info("trade notice",
				zap.String("ticker", run.Ticker),
				zap.Time("date", n.Date),
				zap.String("kind", string(n.Kind)),
				zap.String("detail", n.Detail),
			)
		}

		if err := writeArtifacts(rc.cfg.Analysis.OutputDir, run.Ticker, strat.Name(), title, run.Result); err != nil {
			log.Error("artifact write failed", zap.String("ticker", run.Ticker), zap.Error(err))
		}
	}

	if failures == len(runs) {
		log.Fatal("all tickers failed")
	}
}

func runComparison(ctx context.Context, rc runConfig, log *zap.Logger) {
	comparator := compare.NewComparator(rc.analyzer, log)

	for _, ticker := range rc.cfg.Data.Tickers {
		bars, err := rc.source.DailyBars(ctx, ticker, rc.start, rc.end)
		if err != nil {
			log.Error("fetch failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}

		entries, err := comparator.Run(bars, strategy.All(rc.cfg.Strategy), rc.engCfg)
		if err != nil {
			log.Error("comparison failed", zap.String("ticker", ticker), zap.Error(err))
			continue
		}

		fmt.Printf("\nstrategy comparison for %s (%s ~ %s, %d bars)\n\n",
			ticker, rc.start.Format("2006-01-02"), rc.end.Format("2006-01-02"), len(bars))
		if err := compare.WriteTable(os.Stdout, entries); err != nil {
			log.Error("table write failed", zap.Error(err))
		}
	}
}

// writeArtifacts exports the trade log, the equity curve and the chart for
// one finished run.
func writeArtifacts(dir, ticker, stratName, title string, res *backtest.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(dir, ticker+"_"+stratName)

	trades, err := os.Create(base + "_trades.csv")
	if err != nil {
		return err
	}
	defer trades.Close()
	if err := analyzer.WriteTradesCSV(trades, res.Trades); err != nil {
		return err
	}

	equity, err := os.Create(base + "_equity.csv")
	if err != nil {
		return err
	}
	defer equity.Close()
	if err := analyzer.WriteEquityCSV(equity, res.Equity); err != nil {
		return err
	}

	svg, err := analyzer.RenderEquitySVG(title, res.Equity, res.Trades, analyzer.SVGChartOptions{})
	if err != nil {
		return err
	}
	return os.WriteFile(base+"_equity.svg", svg, 0o644)
}
