package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock-backtest-go/internal/backtest"
	"stock-backtest-go/internal/models"
)

// CachingSource serves bars from the local database when a previous fetch
// already covered the requested range, and otherwise fetches from the
// wrapped source and persists the result. Cache writes are best effort: a
// failed write never fails the read.
type CachingSource struct {
	source backtest.BarSource
	db     *gorm.DB
	logger *zap.Logger
}

var _ backtest.BarSource = (*CachingSource)(nil)

func NewCachingSource(source backtest.BarSource, db *gorm.DB, logger *zap.Logger) *CachingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingSource{source: source, db: db, logger: logger.Named("cache")}
}

func (s *CachingSource) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]backtest.Bar, error) {
	if s.covered(ctx, ticker, start, end) {
		bars, err := s.cached(ctx, ticker, start, end)
		if err != nil {
			s.logger.Warn("cache read failed", zap.String("ticker", ticker), zap.Error(err))
		} else if len(bars) > 0 {
			s.logger.Debug("cache hit", zap.String("ticker", ticker), zap.Int("count", len(bars)))
			return bars, nil
		}
	}

	bars, err := s.source.DailyBars(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	s.store(ctx, ticker, start, end, bars)
	return bars, nil
}

// covered reports whether one recorded fetch window contains [start, end].
// Partial overlaps do not count: the remote fills the request in one piece
// and the wider window is recorded for next time.
func (s *CachingSource) covered(ctx context.Context, ticker string, start, end time.Time) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.FetchedRange{}).
		Where("ticker = ? AND start_date <= ? AND end_date >= ?", ticker, start, end).
		Count(&n).Error
	if err != nil {
		s.logger.Warn("cache range lookup failed", zap.String("ticker", ticker), zap.Error(err))
		return false
	}
	return n > 0
}

func (s *CachingSource) cached(ctx context.Context, ticker string, start, end time.Time) ([]backtest.Bar, error) {
	var rows []models.PriceBar
	err := s.db.WithContext(ctx).
		Where("ticker = ? AND date BETWEEN ? AND ?", ticker, start, end).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	bars := make([]backtest.Bar, len(rows))
	for i := range rows {
		bars[i] = rows[i].Bar()
	}
	return bars, nil
}

func (s *CachingSource) store(ctx context.Context, ticker string, start, end time.Time, bars []backtest.Bar) {
	if len(bars) == 0 {
		return
	}
	rows := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		rows[i] = models.NewPriceBar(ticker, b)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		s.logger.Warn("cache write failed", zap.String("ticker", ticker), zap.Error(err))
		return
	}

	// The range row is written last so it never points at missing bars.
	r := models.FetchedRange{Ticker: ticker, StartDate: start, EndDate: end}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		s.logger.Warn("cache range write failed", zap.String("ticker", ticker), zap.Error(err))
		return
	}
	s.logger.Debug("cached bars", zap.String("ticker", ticker), zap.Int("count", len(bars)))
}
