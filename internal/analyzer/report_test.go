package analyzer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	m := Metrics{
		InitialCapital:   100000,
		FinalEquity:      112345.678,
		TotalProfit:      12345.678,
		TotalReturn:      0.1234,
		AnnualizedReturn: 0.2345,
		SharpeRatio:      1.5,
		MaxDrawdown:      -0.0812,
		DrawdownDays:     17,
		WinRate:          0.55,
		BuyCount:         4,
		SellCount:        4,
		TradingDays:      120,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, "浦发银行 (600000) MACD", m))
	out := buf.String()

	assert.Contains(t, out, "Backtest Report: 浦发银行 (600000) MACD")
	assert.Contains(t, out, "¥100,000.00")
	assert.Contains(t, out, "¥112,345.68")
	assert.Contains(t, out, "12.34%")
	assert.Contains(t, out, "-8.12%")
	assert.Contains(t, out, "17 days")
	assert.Contains(t, out, "4 / 4")
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "¥0.00"},
		{100, "¥100.00"},
		{9999.995, "¥10,000.00"},
		{1234567.891, "¥1,234,567.89"},
		{-950.5, "-¥950.50"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatMoney(tc.in), "formatMoney(%v)", tc.in)
	}
}
