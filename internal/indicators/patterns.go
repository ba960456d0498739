package indicators

import (
	"math"

	"github.com/engamit83/intraday-insight/internal/types"
)

const (
	wickDominanceRatio = 2.0
	wickToleranceRatio = 0.5
	dojiBodyRatio      = 0.1
)

// DetectPattern classifies the latest candle against its predecessor. At
// most one pattern is reported; the first match wins in priority order
// hammer family > engulfing > doji. Needs chronological input.
func DetectPattern(cs []types.Candle) types.Pattern {
	if len(cs) < 2 {
		return types.PatternNone
	}
	cur := cs[len(cs)-1]
	prev := cs[len(cs)-2]

	body := math.Abs(cur.Close - cur.Open)
	upperWick := cur.High - math.Max(cur.Open, cur.Close)
	lowerWick := math.Min(cur.Open, cur.Close) - cur.Low

	if body > 0 {
		if lowerWick >= wickDominanceRatio*body && upperWick <= wickToleranceRatio*body {
			return types.PatternHammer
		}
		if upperWick >= wickDominanceRatio*body && lowerWick <= wickToleranceRatio*body {
			// Same shape either way: after a bearish candle it reads as a
			// bottoming inverted hammer, otherwise as a shooting star.
			if prev.Close < prev.Open {
				return types.PatternInvertedHammer
			}
			return types.PatternShootingStar
		}
	}

	// Engulfing requires strict containment of the prior candle's body.
	if cur.Close > cur.Open && prev.Close < prev.Open &&
		cur.Open < prev.Close && cur.Close > prev.Open {
		return types.PatternBullishEngulfing
	}
	if cur.Close < cur.Open && prev.Close > prev.Open &&
		cur.Open > prev.Close && cur.Close < prev.Open {
		return types.PatternBearishEngulfing
	}

	if rng := cur.High - cur.Low; rng > 0 && body/rng < dojiBodyRatio {
		return types.PatternDoji
	}

	return types.PatternNone
}
