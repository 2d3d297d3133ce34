// Package provider fetches A-share market data. The eastmoney client is the
// primary bar source; sina resolves display names; CachingSource keeps bars
// in the local database so repeated runs skip the network.
package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"stock-backtest-go/internal/backtest"
)

const (
	eastmoneyBaseURL = "https://push2his.eastmoney.com"
	klinePath        = "/api/qt/stock/kline/get"
	browserUA        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// EastmoneyClient pulls forward-adjusted daily klines from the eastmoney
// quote API. It implements backtest.BarSource.
type EastmoneyClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ backtest.BarSource = (*EastmoneyClient)(nil)

// NewEastmoneyClient creates a client limited to rateLimit requests per
// second with the given burst.
func NewEastmoneyClient(rateLimit float64, burst int, logger *zap.Logger) *EastmoneyClient {
	if rateLimit <= 0 {
		rateLimit = 5
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(eastmoneyBaseURL).
		SetHeader("User-Agent", browserUA).
		SetHeader("Referer", "https://quote.eastmoney.com/")

	return &EastmoneyClient{
		client:  client,
		logger:  logger.Named("eastmoney"),
		limiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
	}
}

type klineResponse struct {
	Data *klineData `json:"data"`
}

type klineData struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Klines []string `json:"klines"`
}

// DailyBars fetches daily bars for a bare six-digit ticker over the closed
// range [start, end], ascending by date.
func (c *EastmoneyClient) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]backtest.Bar, error) {
	sid, err := secid(ticker)
	if err != nil {
		return nil, err
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"secid":   sid,
			"fields1": "f1,f2,f3,f4,f5,f6",
			"fields2": "f51,f52,f53,f54,f55,f56,f57",
			"klt":     "101",
			"fqt":     "1",
			"beg":     start.Format("20060102"),
			"end":     end.Format("20060102"),
		}).
		SetResult(&klineResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, klinePath, req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", ticker, err)
	}

	result := resp.Result().(*klineResponse)
	if result.Data == nil || len(result.Data.Klines) == 0 {
		return nil, fmt.Errorf("no kline data for %s between %s and %s",
			ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	bars := make([]backtest.Bar, 0, len(result.Data.Klines))
	for _, line := range result.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", ticker, err)
		}
		bars = append(bars, bar)
	}

	bars, dropped := cleanBars(bars)
	if dropped > 0 {
		c.logger.Warn("dropped unusable kline rows",
			zap.String("ticker", ticker),
			zap.Int("dropped", dropped))
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable kline data for %s", ticker)
	}

	c.logger.Debug("fetched daily bars",
		zap.String("ticker", ticker),
		zap.Int("count", len(bars)),
	)
	return bars, nil
}

// cleanBars sorts ascending by date, drops duplicate dates keeping the first
// occurrence, and drops rows with a non-positive close.
func cleanBars(bars []backtest.Bar) (clean []backtest.Bar, dropped int) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	clean = bars[:0]
	var prev time.Time
	for _, b := range bars {
		if b.Close <= 0 || (!prev.IsZero() && !b.Date.After(prev)) {
			dropped++
			continue
		}
		clean = append(clean, b)
		prev = b.Date
	}
	return clean, dropped
}

// secid maps a bare ticker to the API's market-prefixed id. Codes starting
// with 6 trade in Shanghai (prefix 1), everything else in Shenzhen (prefix 0).
func secid(ticker string) (string, error) {
	if len(ticker) != 6 {
		return "", fmt.Errorf("invalid ticker %q: want 6 digits", ticker)
	}
	for _, r := range ticker {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid ticker %q: want 6 digits", ticker)
		}
	}
	if strings.HasPrefix(ticker, "6") {
		return "1." + ticker, nil
	}
	return "0." + ticker, nil
}

// parseKline splits one "date,open,close,high,low,volume,turnover" line.
func parseKline(line string) (backtest.Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 {
		return backtest.Bar{}, fmt.Errorf("malformed kline %q", line)
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return backtest.Bar{}, fmt.Errorf("malformed kline date %q: %w", parts[0], err)
	}

	var prices [4]float64
	for i, field := range parts[1:5] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return backtest.Bar{}, fmt.Errorf("malformed kline price %q in %q: %w", field, line, err)
		}
		prices[i] = v
	}
	volume, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return backtest.Bar{}, fmt.Errorf("malformed kline volume %q: %w", parts[5], err)
	}
	turnover, err := strconv.ParseFloat(parts[6], 64)
	if err != nil {
		return backtest.Bar{}, fmt.Errorf("malformed kline turnover %q: %w", parts[6], err)
	}

	// fields2 order is open, close, high, low
	return backtest.Bar{
		Date:     date,
		Open:     prices[0],
		Close:    prices[1],
		High:     prices[2],
		Low:      prices[3],
		Volume:   volume,
		Turnover: turnover,
	}, nil
}

// doRequest executes with rate limiting and retry on 429/5xx.
func (c *EastmoneyClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && seconds > 0 {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else {
			// Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("request failed, retrying",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		return nil, fmt.Errorf("request failed after %d attempts with status %s", maxRetries, resp.Status())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
