package interfaces

import (
	"context"

	"github.com/engamit83/intraday-insight/internal/types"
)

type TickerManager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Subscribe(ctx context.Context, symbols []string) error
	GetRecentCandles(symbol string, n int) ([]types.Candle, error)
}
