package indicators

import (
	"testing"

	"github.com/engamit83/intraday-insight/internal/types"
)

func pair(prev, cur types.Candle) []types.Candle {
	prev.Ts, cur.Ts = 1, 2
	return []types.Candle{prev, cur}
}

func TestDetectPatternNeedsTwoCandles(t *testing.T) {
	cs := []types.Candle{{Open: 100, High: 101, Low: 99, Close: 100.5}}
	if got := DetectPattern(cs); got != types.PatternNone {
		t.Fatalf("pattern = %q, want none for a single candle", got)
	}
}

func TestDetectHammer(t *testing.T) {
	prev := types.Candle{Open: 101, High: 101.5, Low: 100.5, Close: 100.8}
	cur := types.Candle{Open: 100, High: 101.3, Low: 97, Close: 101}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternHammer {
		t.Fatalf("pattern = %q, want HAMMER", got)
	}
}

func TestDetectInvertedHammerAfterBearish(t *testing.T) {
	prev := types.Candle{Open: 105, High: 105.2, Low: 102.8, Close: 103}
	cur := types.Candle{Open: 100, High: 102.5, Low: 99.8, Close: 100.5}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternInvertedHammer {
		t.Fatalf("pattern = %q, want INVERTED_HAMMER", got)
	}
}

func TestDetectShootingStarAfterBullish(t *testing.T) {
	prev := types.Candle{Open: 99, High: 100.2, Low: 98.8, Close: 100}
	cur := types.Candle{Open: 100, High: 102.5, Low: 99.8, Close: 100.5}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternShootingStar {
		t.Fatalf("pattern = %q, want SHOOTING_STAR", got)
	}
}

func TestDetectBullishEngulfing(t *testing.T) {
	prev := types.Candle{Open: 101, High: 101.2, Low: 99.8, Close: 100}
	cur := types.Candle{Open: 99.5, High: 101.6, Low: 99.4, Close: 101.5}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternBullishEngulfing {
		t.Fatalf("pattern = %q, want BULLISH_ENGULFING", got)
	}
}

func TestDetectBearishEngulfing(t *testing.T) {
	prev := types.Candle{Open: 100, High: 101.2, Low: 99.8, Close: 101}
	cur := types.Candle{Open: 101.5, High: 101.6, Low: 99.4, Close: 99.5}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternBearishEngulfing {
		t.Fatalf("pattern = %q, want BEARISH_ENGULFING", got)
	}
}

func TestDetectDoji(t *testing.T) {
	prev := types.Candle{Open: 99, High: 100.2, Low: 98.8, Close: 100}
	cur := types.Candle{Open: 100, High: 101, Low: 99, Close: 100}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternDoji {
		t.Fatalf("pattern = %q, want DOJI", got)
	}
}

// A hammer shape with a tiny body also satisfies the doji ratio; the
// hammer family wins.
func TestHammerOutranksDoji(t *testing.T) {
	prev := types.Candle{Open: 101, High: 101.5, Low: 100.5, Close: 100.8}
	cur := types.Candle{Open: 100, High: 100.12, Low: 98, Close: 100.1}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternHammer {
		t.Fatalf("pattern = %q, want HAMMER to outrank DOJI", got)
	}
}

func TestDetectNoPattern(t *testing.T) {
	prev := types.Candle{Open: 100, High: 100.7, Low: 99.3, Close: 100.5}
	cur := types.Candle{Open: 100.5, High: 101.2, Low: 100.3, Close: 101}
	if got := DetectPattern(pair(prev, cur)); got != types.PatternNone {
		t.Fatalf("pattern = %q, want none", got)
	}
}
