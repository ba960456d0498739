package interfaces

import (
	"context"
	"time"
)

// EodSummarizer writes the end-of-day CSV report for closed trades.
type EodSummarizer interface {
	// SummarizeDay aggregates the day's closed trades and writes the CSV.
	// Returns the file path, or "" with a nil error when there were no
	// trades to report.
	SummarizeDay(ctx context.Context, t time.Time) (csvPath string, err error)
	// ShouldRunNow reports whether the report for today is due: the
	// session has closed and the file does not exist yet.
	ShouldRunNow(now time.Time) (shouldRun bool, csvPath string)
}
