// Package marketdataobs decorates a MarketData source with spans and
// timing logs.
package marketdataobs

import (
	"context"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/trace"
	"github.com/engamit83/intraday-insight/internal/types"
)

type observableMarketData struct {
	src interfaces.MarketData
}

var _ interfaces.MarketData = (*observableMarketData)(nil)

func Wrap(src interfaces.MarketData) interfaces.MarketData {
	return &observableMarketData{src: src}
}

func (o *observableMarketData) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.RecentCandles")
	defer span.End()

	start := time.Now()
	candles, err := o.src.RecentCandles(ctx, symbol, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Candle fetch failed", err,
			"symbol", symbol,
			"requested", n,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Candles fetched",
		"symbol", symbol,
		"count", len(candles),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return candles, nil
}

func (o *observableMarketData) LTP(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.LTP")
	defer span.End()

	price, err := o.src.LTP(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "LTP fetch failed", err, "symbol", symbol)
		return 0, err
	}
	return price, nil
}

func (o *observableMarketData) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "marketdata.Start")
	defer span.End()

	if err := o.src.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market data start failed", err, "symbols", symbols)
		return err
	}
	return nil
}

func (o *observableMarketData) Stop(ctx context.Context) {
	o.src.Stop(ctx)
}
