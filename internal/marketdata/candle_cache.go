package marketdata

import (
	"fmt"
	"sync"

	"github.com/engamit83/intraday-insight/internal/types"
)

// candleCache holds per-symbol bounded candle buffers fed by the live
// ticker.
type candleCache struct {
	buffers map[string]*candleBuffer
	mu      sync.RWMutex
}

type candleBuffer struct {
	candles []types.Candle
	maxSize int
}

func newCandleCache() *candleCache {
	return &candleCache{buffers: make(map[string]*candleBuffer)}
}

func (cc *candleCache) initBuffer(symbol string, maxSize int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.buffers[symbol] = &candleBuffer{
		candles: make([]types.Candle, 0, maxSize),
		maxSize: maxSize,
	}
}

// upsert appends a candle, or replaces the last one when the timestamp
// matches (the still-forming bar).
func (cc *candleCache) upsert(symbol string, candle types.Candle) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	buffer, exists := cc.buffers[symbol]
	if !exists {
		return
	}

	if n := len(buffer.candles); n > 0 && buffer.candles[n-1].Ts == candle.Ts {
		buffer.candles[n-1] = candle
		return
	}

	buffer.candles = append(buffer.candles, candle)
	if len(buffer.candles) > buffer.maxSize {
		buffer.candles = buffer.candles[1:]
	}
}

func (cc *candleCache) latest(symbol string) (types.Candle, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	buffer, exists := cc.buffers[symbol]
	if !exists || len(buffer.candles) == 0 {
		return types.Candle{}, false
	}
	return buffer.candles[len(buffer.candles)-1], true
}

func (cc *candleCache) getRecent(symbol string, n int) ([]types.Candle, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	buffer, exists := cc.buffers[symbol]
	if !exists {
		return nil, fmt.Errorf("%w for symbol %s", ErrNoData, symbol)
	}

	candles := buffer.candles
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w for symbol %s", ErrNoData, symbol)
	}
	if len(candles) < n {
		out := make([]types.Candle, len(candles))
		copy(out, candles)
		return out, nil
	}
	out := make([]types.Candle, n)
	copy(out, candles[len(candles)-n:])
	return out, nil
}
