package backtest

import (
	"context"
	"time"
)

// Signal is a daily trading instruction, index-aligned with the bar series
// that produced it.
type Signal int8

const (
	Hold Signal = 0
	Buy  Signal = 1
	Sell Signal = -1
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Direction is the executed side of a trade.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Bar is one day of OHLCV data. Close is the execution price for that day's
// signal. Series must be strictly ascending by Date with no duplicates.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Turnover float64
}

// TradeRecord is one executed fill. Price is the effective price after
// slippage; the three cost fields partition the total friction so they can
// be summed without double counting.
type TradeRecord struct {
	Date         time.Time `json:"date"`
	Direction    Direction `json:"direction"`
	Price        float64   `json:"price"`
	Quantity     int64     `json:"quantity"`
	Commission   float64   `json:"commission"`
	StampDuty    float64   `json:"stamp_duty"`
	SlippageCost float64   `json:"slippage_cost"`
	CashAfter    float64   `json:"cash_after"`
	SharesAfter  int64     `json:"shares_after"`
	Forced       bool      `json:"forced,omitempty"`
}

// EquityPoint is the end-of-day snapshot. PositionValue marks shares at the
// raw close. Exactly one point is emitted per input bar.
type EquityPoint struct {
	Date          time.Time `json:"date"`
	Cash          float64   `json:"cash"`
	PositionValue float64   `json:"position_value"`
	Equity        float64   `json:"equity"`
}

// NoticeKind classifies recoverable per-day conditions. They are reported,
// not raised: the simulation continues on the same day.
type NoticeKind string

const (
	NoticeInsufficientFunds NoticeKind = "insufficient_funds"
	NoticeNoPosition        NoticeKind = "no_position"
)

// Notice records a signal that could not be executed.
type Notice struct {
	Date   time.Time  `json:"date"`
	Kind   NoticeKind `json:"kind"`
	Detail string     `json:"detail"`
}

// Result is the full output of one simulation run.
type Result struct {
	Trades  []TradeRecord `json:"trades"`
	Equity  []EquityPoint `json:"equity"`
	Notices []Notice      `json:"notices,omitempty"`
}

// FinalEquity returns the equity of the last point, or zero for an empty run.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// Strategy turns a bar series into one signal per bar. Implementations must
// not look ahead: signal i may depend on bars [0..i] only.
type Strategy interface {
	Name() string
	GenerateSignals(bars []Bar) ([]Signal, error)
}

// BarSource supplies daily bars for a ticker over a closed date range,
// ascending by date.
type BarSource interface {
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}
