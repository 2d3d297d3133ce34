package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stock-backtest-go/internal/api"
	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/config"
	"stock-backtest-go/internal/database"
	"stock-backtest-go/internal/logger"
	"stock-backtest-go/internal/provider"
)

func main() {
	configPath := flag.String("config", "./configs", "directory containing config.yml")
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

	source := newBarSource(cfg, log)
	sina := provider.NewSinaClient(log)

	server := api.NewServer(source, sina.NameFunc(), sina.Quote, cfg, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
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
