// Package scoring converts an indicator snapshot into a tradability
// verdict through a layered multiplier model: additive raw score, then
// market/time/risk multipliers, then an ordered gate.
package scoring

import (
	"fmt"
	"math"

	"github.com/engamit83/intraday-insight/internal/regime"
	"github.com/engamit83/intraday-insight/internal/types"
)

const (
	baseScore      = 50.0
	macdNoiseFloor = 0.001
	maxTrendBonus  = 25.0
)

// Score runs the full pipeline for one candidate snapshot. A non-tradable
// result always names the first gate that failed; a tripped safety gate is
// a deliberate rejection, never an error.
func Score(snap types.IndicatorSnapshot, mr types.MarketRegime, state types.TradingState, rules types.TradingRules) types.SignalScore {
	raw := rawScore(snap)

	marketMult := rules.MarketMult(mr.Regime)
	timeMult := regime.TimeMultiplier(mr.Bucket)
	riskMult := riskMultiplier(state, rules)

	final := clampScore(math.Round(float64(raw) * marketMult * timeMult * riskMult))

	s := types.SignalScore{
		RawScore:   raw,
		FinalScore: final,
		MarketMult: marketMult,
		TimeMult:   timeMult,
		RiskMult:   riskMult,
	}
	s.Tradable, s.RejectionReason = gate(final, mr, state, rules, timeMult)
	return s
}

// rawScore is base 50 plus bounded contributions from each factor, clamped
// to [0,100]. Absent metrics simply contribute nothing.
func rawScore(snap types.IndicatorSnapshot) int {
	score := baseScore

	if snap.TrendStrength != nil {
		score += math.Min(maxTrendBonus, math.Abs(*snap.TrendStrength)/4)
	}

	if snap.RSI != nil {
		r := *snap.RSI
		switch {
		case (r >= 30 && r <= 40) || (r >= 60 && r <= 70):
			score += 15
		case (r >= 25 && r <= 45) || (r >= 55 && r <= 75):
			score += 10
		case r < 20 || r > 80:
			score += 5
		}
	}

	if snap.VWAP != nil && *snap.VWAP != 0 {
		dist := math.Abs(snap.LastClose-*snap.VWAP) / *snap.VWAP
		switch {
		case dist < 0.005:
			score += 15
		case dist < 0.01:
			score += 10
		}
	}

	if snap.RelVolume != nil {
		switch {
		case *snap.RelVolume > 1.5:
			score += 15
		case *snap.RelVolume > 1.2:
			score += 10
		case *snap.RelVolume > 0.8:
			score += 5
		}
	}

	switch snap.Pattern {
	case types.PatternNone:
	case types.PatternDoji:
		score += 3
	default:
		score += 10
	}

	if snap.MACDHist != nil && math.Abs(*snap.MACDHist) > macdNoiseFloor {
		if *snap.MACDHist > 0 {
			score += 10
		} else {
			score += 8
		}
	}

	return clampScore(score)
}

// riskMultiplier tightens sizing as losses accumulate. A tripped
// consecutive-loss limit is a hard zero, then the loss streak and the
// daily drawdown ratio each scale the remainder down.
func riskMultiplier(state types.TradingState, rules types.TradingRules) float64 {
	if rules.ConsecutiveLossLimit > 0 && state.ConsecutiveLosses >= rules.ConsecutiveLossLimit {
		return 0
	}

	mult := 1.0
	switch {
	case state.ConsecutiveLosses >= 2:
		mult *= rules.RiskCurve.TwoLosses
	case state.ConsecutiveLosses >= 1:
		mult *= rules.RiskCurve.OneLoss
	}

	if rules.MaxDailyLoss > 0 && state.DailyPnl < 0 {
		ratio := math.Abs(state.DailyPnl) / rules.MaxDailyLoss
		switch {
		case ratio > 0.8:
			mult *= 0.3
		case ratio > 0.5:
			mult *= 0.6
		case ratio > 0.3:
			mult *= 0.8
		}
	}

	return mult
}

// gate applies the tradability checks in order; the first failure wins.
func gate(final int, mr types.MarketRegime, state types.TradingState, rules types.TradingRules, timeMult float64) (bool, string) {
	if mr.Regime == types.RegimeNoTrade {
		return false, "Market conditions not suitable"
	}
	if !state.AutoModeActive {
		if state.StopReason != "" {
			return false, state.StopReason
		}
		return false, "Auto-mode disabled"
	}
	if rules.MaxDailyTrades > 0 && state.TradesToday >= rules.MaxDailyTrades {
		return false, "Daily trade limit reached"
	}
	if rules.MaxDailyLoss > 0 && state.DailyPnl <= -rules.MaxDailyLoss {
		return false, "Daily loss limit reached"
	}
	if rules.ConsecutiveLossLimit > 0 && state.ConsecutiveLosses >= rules.ConsecutiveLossLimit {
		return false, fmt.Sprintf("Consecutive loss limit reached (%d)", state.ConsecutiveLosses)
	}
	if float64(final) < rules.MinScoreThreshold {
		return false, "Score below threshold"
	}
	if timeMult == 0 {
		return false, "Market is closed"
	}
	return true, ""
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
