package interfaces

import (
	"context"

	"github.com/engamit83/intraday-insight/internal/types"
)

// MarketData supplies OHLCV candles and last traded prices. It may be
// unavailable or rate limited; callers treat failures as retryable and
// absence of data as "insufficient", never as fatal.
type MarketData interface {
	RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
	LTP(ctx context.Context, symbol string) (float64, error)
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
