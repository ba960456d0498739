// Package regime classifies aggregate market conditions for the NSE
// intraday session (09:15-15:30 IST).
package regime

import (
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

// IST is the session zone for every time-of-day decision in the system.
var IST = time.FixedZone("IST", 19800)

// BucketOf maps wall-clock time to its session bucket.
func BucketOf(now time.Time) types.TimeBucket {
	t := now.In(IST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return types.BucketMarketClosed
	}
	mins := t.Hour()*60 + t.Minute()
	switch {
	case mins < 9*60+15 || mins >= 15*60+30:
		return types.BucketMarketClosed
	case mins < 10*60:
		return types.BucketOpeningVolatility
	case mins < 11*60+30:
		return types.BucketMorningSession
	case mins < 14*60:
		return types.BucketMiddayLull
	case mins < 15*60:
		return types.BucketAfternoonSession
	default:
		return types.BucketClosingHour
	}
}

// TimeMultiplier scales signal scores by session quality.
func TimeMultiplier(b types.TimeBucket) float64 {
	switch b {
	case types.BucketMorningSession, types.BucketAfternoonSession:
		return 1.0
	case types.BucketMiddayLull:
		return 0.8
	case types.BucketOpeningVolatility:
		return 0.7
	case types.BucketClosingHour:
		return 0.6
	default:
		return 0
	}
}

// IsOptimal reports the two prime trading windows.
func IsOptimal(b types.TimeBucket) bool {
	return b == types.BucketMorningSession || b == types.BucketAfternoonSession
}

// edgeConfidenceDamp discounts classifications made during the volatile
// open and the close.
const edgeConfidenceDamp = 0.8

func isEdgeBucket(b types.TimeBucket) bool {
	return b == types.BucketOpeningVolatility || b == types.BucketClosingHour
}
