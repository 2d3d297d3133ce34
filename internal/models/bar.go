package models

import (
	"time"

	"gorm.io/gorm"

	"stock-backtest-go/internal/backtest"
)

// PriceBar is one cached day of OHLCV data for a ticker. The ticker+date
// pair is unique so refetches upsert instead of duplicating rows.
type PriceBar struct {
	gorm.Model
	Ticker   string    `gorm:"uniqueIndex:idx_ticker_date;size:16;not null"`
	Date     time.Time `gorm:"uniqueIndex:idx_ticker_date;not null"`
	Open     float64   `gorm:"not null"`
	High     float64   `gorm:"not null"`
	Low      float64   `gorm:"not null"`
	Close    float64   `gorm:"not null"`
	Volume   int64
	Turnover float64
}

// NewPriceBar builds a cache row from a fetched bar.
func NewPriceBar(ticker string, b backtest.Bar) PriceBar {
	return PriceBar{
		Ticker:   ticker,
		Date:     b.Date,
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		Volume:   b.Volume,
		Turnover: b.Turnover,
	}
}

// Bar converts the row back to the engine's bar type.
func (p *PriceBar) Bar() backtest.Bar {
	return backtest.Bar{
		Date:     p.Date,
		Open:     p.Open,
		High:     p.High,
		Low:      p.Low,
		Close:    p.Close,
		Volume:   p.Volume,
		Turnover: p.Turnover,
	}
}
