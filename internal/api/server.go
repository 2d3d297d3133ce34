// Package api exposes the backtester over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/config"
)

// Server wraps the HTTP server and its routes. Requests may override the
// configured defaults per call; the server itself stays stateless.
type Server struct {
	engine *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// NewServer wires the routes against the given bar source. resolve may be
// nil, in which case responses carry the bare ticker as the display name;
// a nil quotes disables /api/quote.
func NewServer(source backtest.BarSource, resolve backtest.NameFunc, quotes QuoteFunc, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware(logger))

	s := &Server{
		engine: engine,
		logger: logger,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: engine,
		},
	}

	h := newHandler(source, resolve, quotes, cfg, logger)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	{
		api.GET("/strategies", h.listStrategies)
		api.GET("/quote", h.realtimeQuote)
		api.POST("/backtest", h.runBacktest)
		api.POST("/compare", h.compareStrategies)
		api.GET("/chart", h.renderChart)
	}

	return s
}

// Start serves HTTP and blocks until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")
	return s.server.Shutdown(ctx)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
