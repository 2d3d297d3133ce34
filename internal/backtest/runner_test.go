package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	bars map[string][]Bar
	errs map[string]error
}

var _ BarSource = (*stubSource)(nil)

func (s *stubSource) DailyBars(_ context.Context, ticker string, _, _ time.Time) ([]Bar, error) {
	if err := s.errs[ticker]; err != nil {
		return nil, err
	}
	return s.bars[ticker], nil
}

type buyAndHoldStrategy struct{}

func (buyAndHoldStrategy) Name() string { return "buy-and-hold" }

func (buyAndHoldStrategy) GenerateSignals(bars []Bar) ([]Signal, error) {
	signals := make([]Signal, len(bars))
	if len(signals) > 0 {
		signals[0] = Buy
	}
	return signals, nil
}

func TestRunAllKeepsInputOrderAndIsolatesFailures(t *testing.T) {
	fetchErr := errors.New("connection reset")
	source := &stubSource{
		bars: map[string][]Bar{
			"600000": mkBars(10, 11, 12),
			"000001": mkBars(20, 19, 21),
		},
		errs: map[string]error{"600999": fetchErr},
	}
	runner := NewRunner(source, nil, nil)

	runs, err := runner.RunAll(context.Background(), []string{"600000", "600999", "000001"},
		time.Time{}, time.Time{}, buyAndHoldStrategy{}, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "600000", runs[0].Ticker)
	require.NoError(t, runs[0].Err)
	assert.Len(t, runs[0].Result.Equity, 3)

	assert.Equal(t, "600999", runs[1].Ticker)
	require.Error(t, runs[1].Err)
	assert.ErrorIs(t, runs[1].Err, fetchErr)
	assert.Nil(t, runs[1].Result)

	assert.Equal(t, "000001", runs[2].Ticker)
	require.NoError(t, runs[2].Err)
	assert.NotZero(t, runs[2].Result.FinalEquity())
}

func TestRunAllResolvesDisplayNames(t *testing.T) {
	source := &stubSource{bars: map[string][]Bar{
		"600000": mkBars(10, 11),
		"000001": mkBars(20, 21),
	}}
	resolve := func(_ context.Context, ticker string) (string, error) {
		if ticker == "600000" {
			return "浦发银行", nil
		}
		return "", errors.New("quote unavailable")
	}
	runner := NewRunner(source, resolve, nil)

	runs, err := runner.RunAll(context.Background(), []string{"600000", "000001"},
		time.Time{}, time.Time{}, buyAndHoldStrategy{}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "浦发银行", runs[0].Name)
	assert.Equal(t, "000001", runs[1].Name, "lookup failure falls back to the ticker")
	require.NoError(t, runs[1].Err)
}

func TestRunAllRejectsInvalidConfig(t *testing.T) {
	runner := NewRunner(&stubSource{}, nil, nil)
	cfg := DefaultConfig()
	cfg.LotSize = 0

	runs, err := runner.RunAll(context.Background(), []string{"600000"},
		time.Time{}, time.Time{}, buyAndHoldStrategy{}, cfg)
	assert.Nil(t, runs)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
