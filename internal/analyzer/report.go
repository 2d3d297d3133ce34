package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const reportRule = "============================================================"

// WriteReport renders a human-readable metrics summary to w. The title
// usually carries the ticker, display name and strategy.
func WriteReport(w io.Writer, title string, m Metrics) error {
	var b bytes.Buffer

	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, " Backtest Report: %s\n", title)
	b.WriteString(reportRule + "\n\n")

	b.WriteString("[Returns]\n")
	writeRow(&b, "Initial capital", formatMoney(m.InitialCapital))
	writeRow(&b, "Final equity", formatMoney(m.FinalEquity))
	writeRow(&b, "Total profit", formatMoney(m.TotalProfit))
	writeRow(&b, "Total return", formatPercent(m.TotalReturn))
	writeRow(&b, "Annualized return", formatPercent(m.AnnualizedReturn))

	b.WriteString("\n[Risk]\n")
	writeRow(&b, "Daily volatility", formatPercent(m.DailyVolatility))
	writeRow(&b, "Annualized volatility", formatPercent(m.AnnualizedVolatility))
	writeRow(&b, "Sharpe ratio", fmt.Sprintf("%.4f", m.SharpeRatio))
	writeRow(&b, "Max drawdown", formatPercent(m.MaxDrawdown))
	writeRow(&b, "Drawdown duration", fmt.Sprintf("%d days", m.DrawdownDays))
	writeRow(&b, "Calmar ratio", fmt.Sprintf("%.4f", m.CalmarRatio))

	b.WriteString("\n[Trading]\n")
	writeRow(&b, "Win rate", formatPercent(m.WinRate))
	writeRow(&b, "Profit/loss ratio", fmt.Sprintf("%.4f", m.ProfitLossRatio))
	writeRow(&b, "Buys / sells", fmt.Sprintf("%d / %d", m.BuyCount, m.SellCount))
	writeRow(&b, "Total costs", formatMoney(m.TotalCosts))
	writeRow(&b, "Trading days", strconv.Itoa(m.TradingDays))

	b.WriteString(reportRule + "\n")
	_, err := w.Write(b.Bytes())
	return err
}

func writeRow(b *bytes.Buffer, label, value string) {
	fmt.Fprintf(b, "  %-24s%s\n", label, value)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatMoney renders a yuan amount with comma-grouped thousands.
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	start := len(intPart) % 3
	if start > 0 {
		b.WriteString(intPart[:start])
	}
	for i := start; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + "¥" + b.String() + frac
}
