package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/types"
)

const maxCandlesPerSymbol = 200

// tickerManager streams live ticks over the Kite websocket and folds them
// into minute candles per symbol.
type tickerManager struct {
	kc          *kiteconnect.Client
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string
	exchange    string

	cache *candleCache

	mu            sync.RWMutex
	tokenToSymbol map[uint32]string
}

var _ interfaces.TickerManager = (*tickerManager)(nil)

func newTickerManager(apiKey, accessToken, exchange string) *tickerManager {
	return &tickerManager{
		apiKey:        apiKey,
		accessToken:   accessToken,
		exchange:      exchange,
		cache:         newCandleCache(),
		tokenToSymbol: make(map[uint32]string),
	}
}

func (tm *tickerManager) Start(ctx context.Context) error {
	tm.kc = kiteconnect.New(tm.apiKey)
	tm.kc.SetAccessToken(tm.accessToken)

	tm.ticker = kiteticker.New(tm.apiKey, tm.accessToken)
	tm.ticker.OnConnect(func() { logger.Info(context.Background(), "Ticker websocket connected") })
	tm.ticker.OnError(func(err error) { logger.ErrorWithErr(context.Background(), "Ticker websocket error", err) })
	tm.ticker.OnClose(func(code int, reason string) {
		logger.Warn(context.Background(), "Ticker websocket closed", "code", code, "reason", reason)
	})
	tm.ticker.OnReconnect(func(attempt int, delay time.Duration) {
		logger.Info(context.Background(), "Ticker websocket reconnecting", "attempt", attempt, "delay", delay)
	})
	tm.ticker.OnNoReconnect(func(attempt int) {
		logger.Warn(context.Background(), "Ticker websocket gave up reconnecting", "attempt", attempt)
	})
	tm.ticker.OnTick(tm.onTick)

	go tm.ticker.Serve()
	return nil
}

func (tm *tickerManager) Stop(ctx context.Context) {
	if tm.ticker != nil {
		tm.ticker.Stop()
	}
}

func (tm *tickerManager) Subscribe(ctx context.Context, symbols []string) error {
	tokens := make([]uint32, 0, len(symbols))
	for _, symbol := range symbols {
		token, ok := instrumentToken(symbol)
		if !ok {
			return fmt.Errorf("unknown symbol %q: no instrument token", symbol)
		}

		tm.mu.Lock()
		tm.tokenToSymbol[token] = symbol
		tm.mu.Unlock()

		tm.cache.initBuffer(symbol, maxCandlesPerSymbol)
		tokens = append(tokens, token)
	}

	if err := tm.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("%w: subscribe: %v", ErrUpstreamUnavailable, err)
	}
	if err := tm.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("%w: set mode: %v", ErrUpstreamUnavailable, err)
	}

	logger.Info(ctx, "Subscribed to live ticks", "symbols", symbols)
	return nil
}

func (tm *tickerManager) GetRecentCandles(symbol string, n int) ([]types.Candle, error) {
	return tm.cache.getRecent(symbol, n)
}

// onTick folds a tick into the forming minute candle for its symbol.
func (tm *tickerManager) onTick(tick models.Tick) {
	tm.mu.RLock()
	symbol := tm.tokenToSymbol[tick.InstrumentToken]
	tm.mu.RUnlock()
	if symbol == "" {
		return
	}

	minute := tick.Timestamp.Time.Truncate(time.Minute).Unix()
	candle := types.Candle{
		Ts:    minute,
		Open:  tick.LastPrice,
		High:  tick.LastPrice,
		Low:   tick.LastPrice,
		Close: tick.LastPrice,
		Vol:   float64(tick.VolumeTraded),
	}

	if last, ok := tm.cache.latest(symbol); ok && last.Ts == minute {
		candle.Open = last.Open
		if last.High > candle.High {
			candle.High = last.High
		}
		if last.Low < candle.Low {
			candle.Low = last.Low
		}
	}

	tm.cache.upsert(symbol, candle)
}
