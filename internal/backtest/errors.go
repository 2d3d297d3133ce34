package backtest

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid configuration value. It is fatal and is
// returned before any simulation starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// DataError reports a data-quality failure in the input series. It is fatal:
// the run aborts and partial results are discarded. Date is zero when the
// problem is structural (empty series, misaligned signals).
type DataError struct {
	Date   time.Time
	Reason string
}

func (e *DataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("bad input data: %s", e.Reason)
	}
	return fmt.Sprintf("bad input data at %s: %s", e.Date.Format("2006-01-02"), e.Reason)
}
