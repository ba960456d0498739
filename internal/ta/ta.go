// Package ta holds the single authoritative copy of the indicator math.
// All inputs are chronological (oldest first). Functions degrade to NaN
// (or an empty series) when the input is too short; callers translate
// NaN into absent metrics.
package ta

import "math"

func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

// EMA returns the EMA series: seeded with the simple average of the first
// period values, then ema = (price-prev)*k + prev with k = 2/(period+1).
// The result has len(vals)-period+1 points, aligned to the tail of vals.
func EMA(vals []float64, period int) []float64 {
	if period <= 0 || len(vals) < period {
		return nil
	}
	out := make([]float64, 0, len(vals)-period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += vals[i]
	}
	ema := seed / float64(period)
	out = append(out, ema)
	k := 2.0 / float64(period+1)
	for i := period; i < len(vals); i++ {
		ema = (vals[i]-ema)*k + ema
		out = append(out, ema)
	}
	return out
}

// RSI uses Wilder smoothing: seed average gain/loss from the first period
// deltas, then avg = (avg*(period-1) + current)/period. Needs period+1
// closes. Returns 100 when there are no losses in the window.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACD returns the MACD line (fast EMA minus slow EMA, aligned on the tail
// of both series) and its signal line. The line needs len(closes) >= slow;
// the signal additionally needs signalPeriod points of MACD line.
func MACD(closes []float64, fast, slow, signalPeriod int) (line, signal []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	if emaSlow == nil || emaFast == nil {
		return nil, nil
	}
	// The slow series is shorter after warmup; skip the head of the fast one.
	offset := len(emaFast) - len(emaSlow)
	line = make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}
	signal = EMA(line, signalPeriod)
	return line, signal
}

// ATR uses Wilder smoothing over true ranges: seed with the simple mean of
// the first period TRs, then atr = (atr*(period-1) + tr)/period. Needs
// period+1 candles for the first previous-close.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if len(closes) < period+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		trs = append(trs, tr)
	}
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= float64(period)
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr
}

// VWAP over the full window: sum(typicalPrice*vol)/sum(vol) with
// typicalPrice = (H+L+C)/3. NaN when total volume is zero.
func VWAP(highs, lows, closes, vols []float64) float64 {
	if len(highs) == 0 || len(highs) != len(lows) ||
		len(lows) != len(closes) || len(closes) != len(vols) {
		return math.NaN()
	}
	pv, v := 0.0, 0.0
	for i := range closes {
		tp := (highs[i] + lows[i] + closes[i]) / 3.0
		pv += tp * vols[i]
		v += vols[i]
	}
	if v == 0 {
		return math.NaN()
	}
	return pv / v
}

// RelativeVolume compares the latest volume against the mean of the
// preceding lookback volumes. NaN on insufficient history or a zero mean.
func RelativeVolume(vols []float64, lookback int) float64 {
	if lookback <= 0 || len(vols) < lookback+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vols) - lookback - 1; i < len(vols)-1; i++ {
		sum += vols[i]
	}
	mean := sum / float64(lookback)
	if mean == 0 {
		return math.NaN()
	}
	return vols[len(vols)-1] / mean
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
