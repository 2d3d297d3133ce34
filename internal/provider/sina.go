package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"stock-backtest-go/internal/backtest"
)

const sinaBaseURL = "https://hq.sinajs.cn"

// Response lines look like: var hq_str_sh600000="浦发银行,11.85,...";
var sinaQuoteRe = regexp.MustCompile(`var hq_str_(\w+)="([^"]*)"`)

// Quote is one realtime sina quote. Prices are CNY, Turnover the traded
// amount in CNY.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Open      float64   `json:"open"`
	PrevClose float64   `json:"prev_close"`
	Price     float64   `json:"price"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    int64     `json:"volume"`
	Turnover  float64   `json:"turnover"`
	Time      time.Time `json:"time"`
}

// SinaClient reads the sina realtime quote endpoint, for display names and
// spot quotes. The response body is GBK encoded.
type SinaClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewSinaClient(logger *zap.Logger) *SinaClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(sinaBaseURL).
		SetHeader("User-Agent", browserUA).
		SetHeader("Referer", "https://finance.sina.com.cn/")

	return &SinaClient{client: client, logger: logger.Named("sina")}
}

// NameFunc adapts the client to the runner's resolver hook.
func (c *SinaClient) NameFunc() backtest.NameFunc {
	return c.StockName
}

// StockName returns the display name for a bare six-digit ticker.
func (c *SinaClient) StockName(ctx context.Context, ticker string) (string, error) {
	content, err := c.quoteLine(ctx, ticker)
	if err != nil {
		return "", err
	}
	name := strings.SplitN(content, ",", 2)[0]
	if name == "" {
		return "", fmt.Errorf("no quote data for %s", ticker)
	}
	return name, nil
}

// Quote returns the current quote for a bare six-digit ticker.
func (c *SinaClient) Quote(ctx context.Context, ticker string) (*Quote, error) {
	content, err := c.quoteLine(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return parseQuote(ticker, content)
}

// quoteLine fetches and GBK-decodes the hq_str line for one ticker.
func (c *SinaClient) quoteLine(ctx context.Context, ticker string) (string, error) {
	symbol, err := sinaSymbol(ticker)
	if err != nil {
		return "", err
	}

	resp, err := c.client.R().SetContext(ctx).Get("/list=" + symbol)
	if err != nil {
		return "", fmt.Errorf("fetch quote for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("quote request for %s failed with status %s", ticker, resp.Status())
	}

	reader := transform.NewReader(bytes.NewReader(resp.Body()), simplifiedchinese.GBK.NewDecoder())
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode quote for %s: %w", ticker, err)
	}

	m := sinaQuoteRe.FindStringSubmatch(string(body))
	if len(m) < 3 || m[2] == "" {
		return "", fmt.Errorf("no quote data for %s", ticker)
	}
	return m[2], nil
}

// parseQuote splits one quote line. Field order: name, open, prev close,
// price, high, low, bid, ask, volume, turnover, five bid/ask levels, then
// date and time at indexes 30 and 31.
func parseQuote(ticker, content string) (*Quote, error) {
	fields := strings.Split(content, ",")
	if len(fields) < 32 {
		return nil, fmt.Errorf("quote for %s has %d fields, want 32", ticker, len(fields))
	}

	q := &Quote{
		Ticker:    ticker,
		Name:      fields[0],
		Open:      quoteFloat(fields[1]),
		PrevClose: quoteFloat(fields[2]),
		Price:     quoteFloat(fields[3]),
		High:      quoteFloat(fields[4]),
		Low:       quoteFloat(fields[5]),
		Volume:    quoteInt(fields[8]),
		Turnover:  quoteFloat(fields[9]),
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", fields[30]+" "+fields[31]); err == nil {
		q.Time = ts
	}
	return q, nil
}

func quoteFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func quoteInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

// sinaSymbol maps 600000 to sh600000 and 000001 to sz000001.
func sinaSymbol(ticker string) (string, error) {
	if _, err := secid(ticker); err != nil {
		return "", err
	}
	if strings.HasPrefix(ticker, "6") {
		return "sh" + ticker, nil
	}
	return "sz" + ticker, nil
}
