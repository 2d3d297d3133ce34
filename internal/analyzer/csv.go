package analyzer

import (
	"encoding/csv"
	"io"
	"strconv"

	"stock-backtest-go/internal/backtest"
)

// WriteTradesCSV exports the trade log with a header row.
func WriteTradesCSV(w io.Writer, trades []backtest.TradeRecord) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "direction", "price", "quantity", "commission", "stamp_duty", "slippage_cost", "cash_after", "shares_after", "forced"})
	for _, t := range trades {
		cw.Write([]string{
			t.Date.Format("2006-01-02"),
			string(t.Direction),
			ftoa(t.Price),
			strconv.FormatInt(t.Quantity, 10),
			ftoa(t.Commission),
			ftoa(t.StampDuty),
			ftoa(t.SlippageCost),
			ftoa(t.CashAfter),
			strconv.FormatInt(t.SharesAfter, 10),
			strconv.FormatBool(t.Forced),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteEquityCSV exports the equity curve with a header row.
func WriteEquityCSV(w io.Writer, points []backtest.EquityPoint) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "cash", "position_value", "equity"})
	for _, p := range points {
		cw.Write([]string{
			p.Date.Format("2006-01-02"),
			ftoa(p.Cash),
			ftoa(p.PositionValue),
			ftoa(p.Equity),
		})
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
