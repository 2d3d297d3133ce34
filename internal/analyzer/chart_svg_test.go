package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-backtest-go/internal/backtest"
)

func TestRenderEquitySVG(t *testing.T) {
	equity := mkEquity(t, 100000, 101000, 99000, 102500, 103000)
	trades := []backtest.TradeRecord{
		{Date: equity[1].Date, Direction: backtest.DirectionBuy},
		{Date: equity[3].Date, Direction: backtest.DirectionSell},
	}

	out, err := RenderEquitySVG("600000 DualMovingAverage", equity, trades, SVGChartOptions{})
	require.NoError(t, err)
	svg := string(out)

	assert.True(t, strings.HasPrefix(svg, `<?xml version="1.0"`))
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "600000 DualMovingAverage")
	assert.Contains(t, svg, "2024-01-02")
	assert.Contains(t, svg, "<polyline")
	assert.Contains(t, svg, "drawdown")
	// one buy and one sell marker
	assert.Equal(t, 1, strings.Count(svg, `fill="#22c55e"`))
	assert.Equal(t, 1, strings.Count(svg, `fill="#ef4444"`))
	assert.True(t, strings.HasSuffix(svg, "</svg>\n"))
}

func TestRenderEquitySVGEscapesTitle(t *testing.T) {
	out, err := RenderEquitySVG("a<b&c", mkEquity(t, 100, 101), nil, SVGChartOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), "a&lt;b&amp;c")
	assert.NotContains(t, string(out), ">a<b&c<")
}

func TestRenderEquitySVGMarkerOffCurveIsSkipped(t *testing.T) {
	equity := mkEquity(t, 100, 101, 102)
	stray := []backtest.TradeRecord{{
		Date:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Direction: backtest.DirectionBuy,
	}}

	out, err := RenderEquitySVG("x", equity, stray, SVGChartOptions{})
	require.NoError(t, err)
	assert.Zero(t, strings.Count(string(out), `fill="#22c55e"`))
}

func TestRenderEquitySVGRejectsShortSeries(t *testing.T) {
	_, err := RenderEquitySVG("x", mkEquity(t, 100), nil, SVGChartOptions{})
	assert.Error(t, err)
}
