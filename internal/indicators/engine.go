// Package indicators turns a raw OHLCV series into one IndicatorSnapshot.
// Every metric degrades independently to nil on insufficient history; a
// non-empty series never fails the whole computation.
package indicators

import (
	"errors"
	"math"
	"sort"

	"github.com/engamit83/intraday-insight/internal/ta"
	"github.com/engamit83/intraday-insight/internal/types"
)

// ErrEmptySeries rejects the whole operation: there is nothing to compute.
var ErrEmptySeries = errors.New("empty candle series")

const (
	rsiPeriod     = 14
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	atrPeriod     = 14
	relVolWindow  = 20
	trendSMA      = 20
	trendMomentum = 10
)

// Rounding precision per metric family, applied once at snapshot assembly
// so repeated runs over the same series are bit-identical.
const (
	pricePrecision = 2
	ratioPrecision = 4
	macdPrecision  = 6
)

// Compute builds the snapshot for one symbol/timeframe. Candle order is
// caller-supplied and not trusted: the series is re-sorted chronologically
// on a copy before any path-dependent math runs.
func Compute(symbol, timeframe string, candles []types.Candle) (types.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return types.IndicatorSnapshot{}, ErrEmptySeries
	}

	cs := make([]types.Candle, len(candles))
	copy(cs, candles)
	sort.Slice(cs, func(i, j int) bool { return cs[i].Ts < cs[j].Ts })

	highs := make([]float64, len(cs))
	lows := make([]float64, len(cs))
	closes := make([]float64, len(cs))
	vols := make([]float64, len(cs))
	for i, c := range cs {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		vols[i] = c.Vol
	}

	snap := types.IndicatorSnapshot{
		Symbol:     symbol,
		Timeframe:  timeframe,
		LastClose:  closes[len(closes)-1],
		ComputedAt: cs[len(cs)-1].Ts,
	}

	snap.VWAP = metric(ta.VWAP(highs, lows, closes, vols), pricePrecision)
	snap.RSI = metric(ta.RSI(closes, rsiPeriod), ratioPrecision)
	snap.ATR = metric(ta.ATR(highs, lows, closes, atrPeriod), pricePrecision)
	snap.RelVolume = metric(ta.RelativeVolume(vols, relVolWindow), ratioPrecision)

	line, signal := ta.MACD(closes, macdFast, macdSlow, macdSignal)
	if len(line) > 0 {
		snap.MACD = metric(line[len(line)-1], macdPrecision)
	}
	if len(signal) > 0 {
		snap.MACDSignal = metric(signal[len(signal)-1], macdPrecision)
		snap.MACDHist = metric(line[len(line)-1]-signal[len(signal)-1], macdPrecision)
	}

	snap.TrendStrength = metric(trendStrength(cs, closes), ratioPrecision)
	snap.Pattern = DetectPattern(cs)

	return snap, nil
}

// trendStrength blends 10-period momentum with candle consistency:
// magnitude = min(100, |pct10|*2 + 3*agreeing), where agreeing counts the
// trailing 10 candles whose body points the same way as the trend sign.
// Additive so it is monotonic in both momentum and consistency, and the
// min keeps it inside [-100,100]. Sign follows close vs 20-period SMA.
func trendStrength(cs []types.Candle, closes []float64) float64 {
	if len(cs) < trendSMA+1 || len(cs) < trendMomentum+1 {
		return math.NaN()
	}
	last := closes[len(closes)-1]
	sma := ta.SMA(closes, trendSMA)
	sign := 1.0
	if last <= sma {
		sign = -1.0
	}

	ref := closes[len(closes)-1-trendMomentum]
	if ref == 0 {
		return math.NaN()
	}
	pct := (last - ref) / ref * 100.0

	agreeing := 0
	for i := len(cs) - trendMomentum; i < len(cs); i++ {
		bullish := cs[i].Close > cs[i].Open
		if (sign > 0) == bullish {
			agreeing++
		}
	}

	mag := math.Min(100, math.Abs(pct)*2+3*float64(agreeing))
	return sign * mag
}

// metric converts a NaN result into an absent metric pointer.
func metric(v float64, places int) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r := ta.Round(v, places)
	return &r
}
