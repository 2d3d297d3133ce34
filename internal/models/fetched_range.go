package models

import (
	"time"

	"gorm.io/gorm"
)

// FetchedRange records one window of days already fetched for a ticker. A
// request is served from the bar cache only when some recorded window
// contains it, so a widened range goes back to the remote source.
type FetchedRange struct {
	gorm.Model
	Ticker    string    `gorm:"index;size:16;not null"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`
}
