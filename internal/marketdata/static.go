package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/types"
)

// StaticSource generates synthetic candles for dry runs: a gentle uptrend
// with a sinusoidal wobble, deterministic per symbol and bar timestamp so
// repeated fetches in the same bar agree.
type StaticSource struct {
	timeframe string
	interval  time.Duration
}

var _ interfaces.MarketData = (*StaticSource)(nil)

func NewStatic(timeframe string) *StaticSource {
	return &StaticSource{
		timeframe: timeframe,
		interval:  intervalDuration(timeframe),
	}
}

func (s *StaticSource) Start(ctx context.Context, symbols []string) error { return nil }
func (s *StaticSource) Stop(ctx context.Context)                          {}

func (s *StaticSource) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	base := basePrice(symbol)
	end := time.Now().Truncate(s.interval)

	candles := make([]types.Candle, 0, n)
	for i := n - 1; i >= 0; i-- {
		ts := end.Add(-time.Duration(i) * s.interval)
		candles = append(candles, s.candleAt(base, ts))
	}
	return candles, nil
}

func (s *StaticSource) LTP(ctx context.Context, symbol string) (float64, error) {
	ts := time.Now().Truncate(s.interval)
	c := s.candleAt(basePrice(symbol), ts)
	return c.Close, nil
}

func (s *StaticSource) candleAt(base float64, ts time.Time) types.Candle {
	// Everything derives from the bar index so a bar's values never
	// depend on the window it was fetched through. Drift ramps up over
	// the day and resets at the rollover.
	bar := ts.Unix() / int64(s.interval.Seconds())
	barsPerDay := int64(24 * time.Hour / s.interval)
	phase := float64(bar) * 0.35
	wobble := math.Sin(phase) * base * 0.004
	drift := float64(bar%barsPerDay) * base * 0.0005

	close := base + drift + wobble
	open := close - base*0.001*math.Cos(phase)
	high := math.Max(open, close) + base*0.0015
	low := math.Min(open, close) - base*0.0015
	vol := 50000 + 20000*math.Abs(math.Sin(phase*1.7))

	return types.Candle{
		Ts:    ts.Unix(),
		Open:  round2(open),
		High:  round2(high),
		Low:   round2(low),
		Close: round2(close),
		Vol:   math.Round(vol),
	}
}

func basePrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 500 + float64(h.Sum32()%2500)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
