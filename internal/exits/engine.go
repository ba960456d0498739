// Package exits decides whether an open position should be closed. Target
// and stop checks are terminal and always outrank the composite
// early-exit score.
package exits

import (
	"math"
	"strings"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

const (
	earlyExitThreshold = 50.0

	weightStalled   = 30.0
	weightMomentum  = 35.0
	weightDryVolume = 25.0
	weightVWAPLost  = 30.0
	weightLongHold  = 15.0

	vwapTolerance = 0.002
)

// Evaluate inspects one open position against current price, indicators
// and regime. Target and stop prices of 0 mean "not set". The snapshot may
// be nil; the composite early-exit factors are then skipped entirely.
func Evaluate(pos types.Position, price float64, snap *types.IndicatorSnapshot, mr types.MarketRegime, target, stop float64, now time.Time) types.ExitDecision {
	long := pos.Direction == types.DirectionBuy

	if target > 0 && ((long && price >= target) || (!long && price <= target)) {
		return types.ExitDecision{
			ShouldExit: true,
			Type:       types.ExitTargetHit,
			Reason:     "target reached",
			Confidence: 100,
		}
	}

	if stop > 0 && ((long && price <= stop) || (!long && price >= stop)) {
		return types.ExitDecision{
			ShouldExit: true,
			Type:       types.ExitStoplossHit,
			Reason:     "stoploss breached",
			Confidence: 100,
		}
	}

	if mr.Regime == types.RegimeNoTrade || mr.Regime == types.RegimeHighVol {
		return types.ExitDecision{
			ShouldExit: true,
			Type:       types.ExitEarly,
			Reason:     "regime flipped to " + string(mr.Regime),
			Confidence: 85,
		}
	}

	if snap == nil {
		return types.ExitDecision{Reason: "no indicator data, holding", Confidence: 100}
	}

	score, factors := earlyExitScore(pos, price, snap, now, long)
	if score >= earlyExitThreshold {
		return types.ExitDecision{
			ShouldExit: true,
			Type:       types.ExitEarly,
			Reason:     strings.Join(factors, ", "),
			Confidence: math.Min(95, score+20),
		}
	}

	return types.ExitDecision{Reason: "holding", Confidence: 100 - score}
}

// earlyExitScore accumulates fixed weights from independent checks; each
// factor fires at most once.
func earlyExitScore(pos types.Position, price float64, snap *types.IndicatorSnapshot, now time.Time, long bool) (float64, []string) {
	score := 0.0
	var factors []string
	held := now.Sub(pos.OpenedAt)

	if pos.EntryPrice > 0 {
		movePct := math.Abs(price-pos.EntryPrice) / pos.EntryPrice * 100.0
		if (held > 30*time.Minute && movePct < 0.3) || (held > 45*time.Minute && movePct < 0.5) {
			score += weightStalled
			factors = append(factors, "price stalled")
		}
	}

	if momentumWeakening(snap, long) {
		score += weightMomentum
		factors = append(factors, "momentum weakening")
	}

	if snap.RelVolume != nil && *snap.RelVolume < 0.5 {
		score += weightDryVolume
		factors = append(factors, "volume dried up")
	}

	if snap.VWAP != nil && *snap.VWAP > 0 {
		if (long && price < *snap.VWAP*(1-vwapTolerance)) ||
			(!long && price > *snap.VWAP*(1+vwapTolerance)) {
			score += weightVWAPLost
			if long {
				factors = append(factors, "vwap support lost")
			} else {
				factors = append(factors, "vwap resistance lost")
			}
		}
	}

	if held > 60*time.Minute {
		score += weightLongHold
		factors = append(factors, "held beyond 60m")
	}

	return score, factors
}

// momentumWeakening fires on any momentum reading turned against the
// position: exhausted RSI, an opposing MACD histogram, or trend strength
// reversed past 30.
func momentumWeakening(snap *types.IndicatorSnapshot, long bool) bool {
	if snap.RSI != nil {
		if (long && *snap.RSI > 75) || (!long && *snap.RSI < 25) {
			return true
		}
	}
	if snap.MACDHist != nil {
		if (long && *snap.MACDHist < 0) || (!long && *snap.MACDHist > 0) {
			return true
		}
	}
	if snap.TrendStrength != nil {
		if (long && *snap.TrendStrength < -30) || (!long && *snap.TrendStrength > 30) {
			return true
		}
	}
	return false
}
