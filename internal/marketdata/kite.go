// Package marketdata implements the candle/price source behind the
// decision pipeline: live Zerodha Kite data (REST historical plus a
// websocket ticker) or a deterministic synthetic source for dry runs.
package marketdata

import (
	"context"
	"fmt"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/types"
)

type Params struct {
	APIKey       string
	AccessToken  string
	Exchange     string
	Timeframe    string // kite interval name, e.g. "5minute"
	CandleSource string // STATIC or LIVE
	Limiter      *RateLimiter
}

// New picks the source implementation for the configured candle source.
func New(p Params) interfaces.MarketData {
	if p.CandleSource == "LIVE" {
		return newKiteSource(p)
	}
	return NewStatic(p.Timeframe)
}

// kiteSource serves candles from the live tick cache when warm, falling
// back to the Kite historical REST API behind the injected rate limiter.
type kiteSource struct {
	p         Params
	kc        *kiteconnect.Client
	tickerMgr interfaces.TickerManager
	started   bool
}

var _ interfaces.MarketData = (*kiteSource)(nil)

func newKiteSource(p Params) *kiteSource {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &kiteSource{
		p:         p,
		kc:        kc,
		tickerMgr: newTickerManager(p.APIKey, p.AccessToken, p.Exchange),
	}
}

func (k *kiteSource) Start(ctx context.Context, symbols []string) error {
	if k.started {
		return nil
	}
	if err := k.tickerMgr.Start(ctx); err != nil {
		return fmt.Errorf("start ticker: %w", err)
	}
	if err := k.tickerMgr.Subscribe(ctx, symbols); err != nil {
		return err
	}
	k.started = true
	return nil
}

func (k *kiteSource) Stop(ctx context.Context) {
	if k.tickerMgr != nil {
		k.tickerMgr.Stop(ctx)
	}
}

func (k *kiteSource) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	if k.started {
		if candles, err := k.tickerMgr.GetRecentCandles(symbol, n); err == nil && len(candles) >= n {
			return candles, nil
		}
	}
	return k.fetchHistorical(ctx, symbol, n)
}

func (k *kiteSource) fetchHistorical(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	token, ok := instrumentToken(symbol)
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q: no instrument token", symbol)
	}

	if k.p.Limiter != nil {
		if err := k.p.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	interval := intervalDuration(k.p.Timeframe)
	to := time.Now()
	// Over-fetch to survive market gaps and holidays in the window.
	from := to.Add(-time.Duration(n*3) * interval)

	data, err := k.kc.GetHistoricalData(int(token), k.p.Timeframe, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: historical %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w for symbol %s", ErrNoData, symbol)
	}

	candles := make([]types.Candle, 0, len(data))
	for _, d := range data {
		candles = append(candles, types.Candle{
			Ts:    d.Date.Time.Unix(),
			Open:  d.Open,
			High:  d.High,
			Low:   d.Low,
			Close: d.Close,
			Vol:   float64(d.Volume),
		})
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}

	logger.Debug(ctx, "Fetched historical candles", "symbol", symbol, "count", len(candles))
	return candles, nil
}

func (k *kiteSource) LTP(ctx context.Context, symbol string) (float64, error) {
	if k.started {
		if candles, err := k.tickerMgr.GetRecentCandles(symbol, 1); err == nil && len(candles) > 0 {
			return candles[len(candles)-1].Close, nil
		}
	}

	if k.p.Limiter != nil {
		if err := k.p.Limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	instrument := fmt.Sprintf("%s:%s", k.p.Exchange, symbol)
	quotes, err := k.kc.GetLTP(instrument)
	if err != nil {
		return 0, fmt.Errorf("%w: ltp %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	q, ok := quotes[instrument]
	if !ok {
		return 0, fmt.Errorf("%w for symbol %s", ErrNoData, symbol)
	}
	return q.LastPrice, nil
}

func intervalDuration(interval string) time.Duration {
	switch interval {
	case "minute":
		return time.Minute
	case "3minute":
		return 3 * time.Minute
	case "5minute":
		return 5 * time.Minute
	case "10minute":
		return 10 * time.Minute
	case "15minute":
		return 15 * time.Minute
	case "30minute":
		return 30 * time.Minute
	case "60minute":
		return time.Hour
	case "day":
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}
