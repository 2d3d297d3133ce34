package analyzer

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"stock-backtest-go/internal/backtest"
)

type SVGChartOptions struct {
	Width  int
	Height int
}

func (o SVGChartOptions) withDefaults() SVGChartOptions {
	if o.Width <= 0 {
		o.Width = 980
	}
	if o.Height <= 0 {
		o.Height = 560
	}
	return o
}

// RenderEquitySVG draws the equity curve with buy/sell markers and a
// drawdown panel underneath.
func RenderEquitySVG(title string, equity []backtest.EquityPoint, trades []backtest.TradeRecord, opt SVGChartOptions) ([]byte, error) {
	opt = opt.withDefaults()
	if len(equity) < 2 {
		return nil, fmt.Errorf("not enough equity points: %d", len(equity))
	}

	minV := math.Inf(1)
	maxV := math.Inf(-1)
	for _, p := range equity {
		if p.Equity < minV {
			minV = p.Equity
		}
		if p.Equity > maxV {
			maxV = p.Equity
		}
	}
	if math.IsInf(minV, 0) || math.IsInf(maxV, 0) {
		return nil, fmt.Errorf("invalid equity range")
	}
	pad := (maxV - minV) * 0.05
	if pad <= 0 {
		pad = math.Abs(maxV) * 0.02
	}
	if pad <= 0 {
		pad = 1
	}
	minV -= pad
	maxV += pad

	// Drawdown series off the running peak.
	dd := make([]float64, len(equity))
	worst := 0.0
	peak := equity[0].Equity
	for i, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd[i] = (p.Equity - peak) / peak
		}
		if dd[i] < worst {
			worst = dd[i]
		}
	}
	ddFloor := worst
	if ddFloor > -0.01 {
		ddFloor = -0.01
	}

	// Layout: equity panel above, drawdown panel below.
	w := float64(opt.Width)
	h := float64(opt.Height)
	mLeft := 80.0
	mRight := 20.0
	mTop := 24.0
	mBottom := 40.0
	gap := 16.0
	plotW := w - mLeft - mRight
	plotH := h - mTop - mBottom - gap
	if plotW <= 10 || plotH <= 20 {
		return nil, fmt.Errorf("invalid chart size")
	}
	eqH := plotH * 0.7
	ddH := plotH - eqH
	ddTop := mTop + eqH + gap

	equityToY := func(v float64) float64 {
		r := (v - minV) / (maxV - minV)
		r = math.Max(0, math.Min(1, r))
		return mTop + (1.0-r)*eqH
	}
	ddToY := func(d float64) float64 {
		r := d / ddFloor
		r = math.Max(0, math.Min(1, r))
		return ddTop + r*ddH
	}

	n := float64(len(equity))
	xAt := func(i int) float64 {
		return mLeft + (float64(i)+0.5)*(plotW/n)
	}

	bg := "#0b1220"
	grid := "rgba(255,255,255,0.08)"
	line := "#38bdf8"
	up := "#22c55e"
	down := "#ef4444"
	ddFill := "rgba(239,68,68,0.35)"
	txt := "rgba(255,255,255,0.85)"
	font := ` font-family="ui-monospace, Menlo, Monaco, Consolas, monospace"`

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + strconv.Itoa(opt.Width) + `" height="` + strconv.Itoa(opt.Height) + `" viewBox="0 0 ` + strconv.Itoa(opt.Width) + ` ` + strconv.Itoa(opt.Height) + `">` + "\n")
	buf.WriteString(`<rect x="0" y="0" width="100%" height="100%" fill="` + bg + `"/>` + "\n")

	firstD := equity[0].Date.Format("2006-01-02")
	lastD := equity[len(equity)-1].Date.Format("2006-01-02")
	head := strings.TrimSpace(title)
	if head == "" {
		head = "EQUITY"
	}
	buf.WriteString(`<text x="` + fmtFloat(mLeft) + `" y="16" fill="` + txt + `" font-size="14"` + font + `>` +
		html.EscapeString(head) + `  ` + html.EscapeString(firstD) + ` ~ ` + html.EscapeString(lastD) + `</text>` + "\n")

	// Grid and axis labels for the equity panel.
	for k := 0; k <= 4; k++ {
		y := mTop + (float64(k)/4.0)*eqH
		buf.WriteString(`<line x1="` + fmtFloat(mLeft) + `" y1="` + fmtFloat(y) + `" x2="` + fmtFloat(mLeft+plotW) + `" y2="` + fmtFloat(y) + `" stroke="` + grid + `" stroke-width="1"/>` + "\n")
		v := maxV - (float64(k)/4.0)*(maxV-minV)
		buf.WriteString(`<text x="6" y="` + fmtFloat(y+4) + `" fill="` + txt + `" font-size="12"` + font + `>` +
			html.EscapeString(fmtAxis(v)) + `</text>` + "\n")
	}

	// Equity polyline.
	var pts strings.Builder
	for i, p := range equity {
		if i > 0 {
			pts.WriteByte(' ')
		}
		pts.WriteString(fmtFloat(xAt(i)) + "," + fmtFloat(equityToY(p.Equity)))
	}
	buf.WriteString(`<polyline points="` + pts.String() + `" fill="none" stroke="` + line + `" stroke-width="1.5"/>` + "\n")

	// Drawdown filled area anchored to its panel top.
	var ddPath strings.Builder
	ddPath.WriteString("M " + fmtFloat(xAt(0)) + "," + fmtFloat(ddTop))
	for i := range equity {
		ddPath.WriteString(" L " + fmtFloat(xAt(i)) + "," + fmtFloat(ddToY(dd[i])))
	}
	ddPath.WriteString(" L " + fmtFloat(xAt(len(equity)-1)) + "," + fmtFloat(ddTop) + " Z")
	buf.WriteString(`<path d="` + ddPath.String() + `" fill="` + ddFill + `" stroke="` + down + `" stroke-width="1"/>` + "\n")
	buf.WriteString(`<text x="6" y="` + fmtFloat(ddTop+12) + `" fill="` + txt + `" font-size="12"` + font + `>drawdown ` +
		html.EscapeString(fmtPercentLabel(worst)) + `</text>` + "\n")

	// Trade markers on the equity curve.
	for _, t := range trades {
		x := -1.0
		y := 0.0
		for i := range equity {
			if equity[i].Date.Equal(t.Date) {
				x = xAt(i)
				y = equityToY(equity[i].Equity)
				break
			}
		}
		if x < 0 {
			continue
		}
		if t.Direction == backtest.DirectionBuy {
			buf.WriteString(`<path d="M ` + fmtFloat(x) + ` ` + fmtFloat(y+4) + ` L ` + fmtFloat(x-4) + ` ` + fmtFloat(y+12) + ` L ` + fmtFloat(x+4) + ` ` + fmtFloat(y+12) + ` Z" fill="` + up + `"/>` + "\n")
		} else {
			buf.WriteString(`<path d="M ` + fmtFloat(x) + ` ` + fmtFloat(y-4) + ` L ` + fmtFloat(x-4) + ` ` + fmtFloat(y-12) + ` L ` + fmtFloat(x+4) + ` ` + fmtFloat(y-12) + ` Z" fill="` + down + `"/>` + "\n")
		}
	}

	// Footer dates.
	buf.WriteString(`<text x="` + fmtFloat(mLeft) + `" y="` + fmtFloat(h-12) + `" fill="` + txt + `" font-size="12"` + font + `>` +
		html.EscapeString(firstD) + `</text>` + "\n")
	buf.WriteString(`<text x="` + fmtFloat(mLeft+plotW-70) + `" y="` + fmtFloat(h-12) + `" fill="` + txt + `" font-size="12"` + font + `>` +
		html.EscapeString(lastD) + `</text>` + "\n")

	buf.WriteString(`</svg>` + "\n")
	return buf.Bytes(), nil
}

func fmtFloat(x float64) string {
	// stable compact formatting for SVG attributes
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func fmtAxis(v float64) string {
	if math.Abs(v) >= 10000 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fmtPercentLabel(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
