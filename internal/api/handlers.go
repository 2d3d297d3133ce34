package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-backtest-go/internal/analyzer"
	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/compare"
	"stock-backtest-go/internal/config"
	"stock-backtest-go/internal/provider"
	"stock-backtest-go/internal/strategy"
)

// QuoteFunc returns the realtime quote for a ticker.
type QuoteFunc func(ctx context.Context, ticker string) (*provider.Quote, error)

type handler struct {
	source   backtest.BarSource
	resolve  backtest.NameFunc
	quotes   QuoteFunc
	defaults config.Config
	analyzer *analyzer.Analyzer
	logger   *zap.Logger
}

func newHandler(source backtest.BarSource, resolve backtest.NameFunc, quotes QuoteFunc, cfg config.Config, logger *zap.Logger) *handler {
	return &handler{
		source:   source,
		resolve:  resolve,
		quotes:   quotes,
		defaults: cfg,
		analyzer: analyzer.New(cfg.Analysis.RiskFreeRate, cfg.Analysis.TradingDays),
		logger:   logger,
	}
}

// backtestRequest overrides are partial: keys absent from the strategy and
// backtest objects keep their configured defaults.
type backtestRequest struct {
	Ticker    string          `json:"ticker" binding:"required"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Strategy  json.RawMessage `json:"strategy"`
	Backtest  json.RawMessage `json:"backtest"`
}

type compareRequest struct {
	Ticker    string          `json:"ticker" binding:"required"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Backtest  json.RawMessage `json:"backtest"`
}

func (h *handler) listStrategies(c *gin.Context) {
	infos := strategy.Catalog()
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(infos), "data": infos})
}

func (h *handler) realtimeQuote(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	if h.quotes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quote source not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	q, err := h.quotes(ctx, ticker)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": q})
}

func (h *handler) runBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stratCfg := h.defaults.Strategy
	if len(req.Strategy) > 0 {
		if err := json.Unmarshal(req.Strategy, &stratCfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid strategy overrides: " + err.Error()})
			return
		}
	}
	strat, err := strategy.FromConfig(stratCfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	engCfg, ok := h.engineConfig(c, req.Backtest)
	if !ok {
		return
	}
	bars, ok := h.fetchBars(c, req.Ticker, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	res, ok := h.simulate(c, strat, bars, engCfg)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"ticker":   req.Ticker,
			"name":     h.displayName(c, req.Ticker),
			"strategy": strat.Name(),
			"metrics":  h.analyzer.Compute(res, engCfg.InitialCapital),
			"trades":   res.Trades,
			"notices":  res.Notices,
			"equity":   res.Equity,
		},
	})
}

func (h *handler) compareStrategies(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	engCfg, ok := h.engineConfig(c, req.Backtest)
	if !ok {
		return
	}
	bars, ok := h.fetchBars(c, req.Ticker, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	comparator := compare.NewComparator(h.analyzer, h.logger)
	entries, err := comparator.Run(bars, strategy.All(h.defaults.Strategy), engCfg)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(entries),
		"data": gin.H{
			"ticker":  req.Ticker,
			"name":    h.displayName(c, req.Ticker),
			"entries": entries,
		},
	})
}

func (h *handler) renderChart(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	stratCfg := h.defaults.Strategy
	if name := c.Query("strategy"); name != "" {
		stratCfg.Name = name
	}
	strat, err := strategy.FromConfig(stratCfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bars, ok := h.fetchBars(c, ticker, c.Query("start_date"), c.Query("end_date"))
	if !ok {
		return
	}

	res, ok := h.simulate(c, strat, bars, h.defaults.Backtest.EngineConfig())
	if !ok {
		return
	}

	title := h.displayName(c, ticker) + " (" + ticker + ") " + strat.Name()
	svg, err := analyzer.RenderEquitySVG(title, res.Equity, res.Trades, analyzer.SVGChartOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", svg)
}

// engineConfig merges request overrides onto the configured defaults and
// answers the request itself on failure.
func (h *handler) engineConfig(c *gin.Context, overrides json.RawMessage) (backtest.Config, bool) {
	btCfg := h.defaults.Backtest
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &btCfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid backtest overrides: " + err.Error()})
			return backtest.Config{}, false
		}
	}
	engCfg := btCfg.EngineConfig()
	if err := engCfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return backtest.Config{}, false
	}
	return engCfg, true
}

func (h *handler) fetchBars(c *gin.Context, ticker, startStr, endStr string) ([]backtest.Bar, bool) {
	d := h.defaults.Data
	if startStr != "" {
		d.StartDate = startStr
	}
	if endStr != "" {
		d.EndDate = endStr
	}
	start, end, err := d.DateRange()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	bars, err := h.source.DailyBars(c.Request.Context(), ticker, start, end)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, false
	}
	return bars, true
}

func (h *handler) simulate(c *gin.Context, strat backtest.Strategy, bars []backtest.Bar, engCfg backtest.Config) (*backtest.Result, bool) {
	signals, err := strat.GenerateSignals(bars)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	engine, err := backtest.NewEngine(engCfg, h.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	res, err := engine.Run(bars, signals)
	if err != nil {
		status := http.StatusInternalServerError
		var derr *backtest.DataError
		if errors.As(err, &derr) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return res, true
}

// displayName makes a best-effort name lookup bounded to keep responses fast.
func (h *handler) displayName(c *gin.Context, ticker string) string {
	if h.resolve == nil {
		return ticker
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	name, err := h.resolve(ctx, ticker)
	if err != nil {
		h.logger.Debug("name lookup failed", zap.String("ticker", ticker), zap.Error(err))
		return ticker
	}
	return name
}
