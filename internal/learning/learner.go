// Package learning nudges the active trading rules from realized
// outcomes. It is a bounded heuristic, not a model: proposals need a
// minimum sample, applications are damped to a fraction of the proposed
// move, and stale proposals are never applied.
package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engamit83/intraday-insight/internal/types"
)

const (
	// OutcomeWindow is the span of closed trades considered by Analyze.
	OutcomeWindow = 7 * 24 * time.Hour
	// Proposals older than this are ignored by Apply.
	proposalFreshness = 24 * time.Hour
	// Fraction of the distance toward the proposed value moved per
	// application. Deliberately small; do not raise casually.
	dampingFactor = 0.2

	minSampleSize  = 5
	multiplierStep = 0.1
	thresholdStep  = 5.0
)

// Condition identifiers understood by Apply.
const (
	CondMinScoreThreshold = "min_score_threshold"
	condMarketMultPrefix  = "market_multiplier:"
)

func CondMarketMultiplier(r types.Regime) string {
	return condMarketMultPrefix + string(r)
}

type regimeOutcome struct {
	trades int
	wins   int
	pnl    float64
}

func (o regimeOutcome) winRate() float64 {
	if o.trades == 0 {
		return 0
	}
	return float64(o.wins) / float64(o.trades) * 100.0
}

// ExitStats reports effectiveness per exit type. Operator visibility only;
// it never drives automatic adjustment.
type ExitStats struct {
	Count  int     `json:"count"`
	AvgPnl float64 `json:"avg_pnl"`
}

// Analyze groups closed trades from the trailing window by regime at entry
// and by final-score bucket, then proposes bounded rule adjustments for
// cohorts with enough samples.
func Analyze(trades []types.Position, signals []types.Signal, rules types.TradingRules, now time.Time) []types.LearningAdjustment {
	signalByID := make(map[string]types.Signal, len(signals))
	for _, s := range signals {
		signalByID[s.ID] = s
	}

	byRegime := map[types.Regime]*regimeOutcome{}
	type bucketOutcome struct{ trades, wins int }
	byBucket := map[string]*bucketOutcome{}

	for _, t := range trades {
		if t.Status != types.PositionClosed || now.Sub(t.ClosedAt) > OutcomeWindow {
			continue
		}
		sig, ok := signalByID[t.SignalID]
		if !ok {
			continue
		}

		ro := byRegime[sig.Regime]
		if ro == nil {
			ro = &regimeOutcome{}
			byRegime[sig.Regime] = ro
		}
		ro.trades++
		ro.pnl += t.RealizedPnl
		won := t.RealizedPnl > 0
		if won {
			ro.wins++
		}

		b := scoreBucket(sig.FinalScore)
		bo := byBucket[b]
		if bo == nil {
			bo = &bucketOutcome{}
			byBucket[b] = bo
		}
		bo.trades++
		if won {
			bo.wins++
		}
	}

	var adjustments []types.LearningAdjustment
	propose := func(condition string, original, proposed float64, reason string, samples int, winRate float64) {
		adjustments = append(adjustments, types.LearningAdjustment{
			ID:         uuid.NewString(),
			Condition:  condition,
			Original:   original,
			Proposed:   proposed,
			Reason:     reason,
			SampleSize: samples,
			WinRate:    winRate,
			CreatedAt:  now,
		})
	}

	if o := byRegime[types.RegimeTrending]; o != nil && o.trades >= minSampleSize && o.winRate() < 50 {
		cur := rules.MarketMult(types.RegimeTrending)
		propose(CondMarketMultiplier(types.RegimeTrending), cur, cur-multiplierStep,
			fmt.Sprintf("TRENDING win rate %.0f%% below 50%%", o.winRate()), o.trades, o.winRate())
	}
	if o := byRegime[types.RegimeRange]; o != nil && o.trades >= minSampleSize && o.winRate() > 60 {
		cur := rules.MarketMult(types.RegimeRange)
		propose(CondMarketMultiplier(types.RegimeRange), cur, cur+multiplierStep,
			fmt.Sprintf("RANGE win rate %.0f%% above 60%%", o.winRate()), o.trades, o.winRate())
	}
	if o := byRegime[types.RegimeHighVol]; o != nil && o.trades >= minSampleSize && o.winRate() < 40 {
		cur := rules.MarketMult(types.RegimeHighVol)
		propose(CondMarketMultiplier(types.RegimeHighVol), cur, cur-multiplierStep,
			fmt.Sprintf("HIGH_VOLATILITY win rate %.0f%% below 40%%", o.winRate()), o.trades, o.winRate())
	}
	if bo := byBucket["60-80"]; bo != nil && bo.trades >= minSampleSize {
		winRate := float64(bo.wins) / float64(bo.trades) * 100.0
		if winRate < 50 {
			propose(CondMinScoreThreshold, rules.MinScoreThreshold, rules.MinScoreThreshold+thresholdStep,
				fmt.Sprintf("60-80 score bucket win rate %.0f%% below 50%%", winRate), bo.trades, winRate)
		}
	}

	return adjustments
}

// Apply moves the live rules a damped step toward each fresh proposal:
// new = current + (proposed-current)*dampingFactor. Stale proposals are
// skipped. Returns the updated rules and the adjustments actually applied,
// with AppliedAt stamped.
func Apply(rules types.TradingRules, adjustments []types.LearningAdjustment, now time.Time) (types.TradingRules, []types.LearningAdjustment) {
	updated := rules
	updated.MarketMultiplier = make(map[types.Regime]float64, len(rules.MarketMultiplier))
	for k, v := range rules.MarketMultiplier {
		updated.MarketMultiplier[k] = v
	}

	var applied []types.LearningAdjustment
	for _, adj := range adjustments {
		if now.Sub(adj.CreatedAt) > proposalFreshness {
			continue
		}

		switch {
		case adj.Condition == CondMinScoreThreshold:
			updated.MinScoreThreshold = dampedStep(updated.MinScoreThreshold, adj.Proposed)
		case len(adj.Condition) > len(condMarketMultPrefix) && adj.Condition[:len(condMarketMultPrefix)] == condMarketMultPrefix:
			r := types.Regime(adj.Condition[len(condMarketMultPrefix):])
			updated.MarketMultiplier[r] = dampedStep(updated.MarketMult(r), adj.Proposed)
		default:
			continue
		}

		at := now
		adj.AppliedAt = &at
		applied = append(applied, adj)
	}

	if len(applied) > 0 {
		updated.UpdatedAt = now
	}
	return updated, applied
}

func dampedStep(current, proposed float64) float64 {
	return current + (proposed-current)*dampingFactor
}

// ExitEffectiveness aggregates count and average PnL per exit type over
// closed trades.
func ExitEffectiveness(trades []types.Position) map[types.ExitType]ExitStats {
	sums := map[types.ExitType]float64{}
	counts := map[types.ExitType]int{}
	for _, t := range trades {
		if t.Status != types.PositionClosed || t.ExitType == "" {
			continue
		}
		sums[t.ExitType] += t.RealizedPnl
		counts[t.ExitType]++
	}

	out := make(map[types.ExitType]ExitStats, len(counts))
	for et, n := range counts {
		out[et] = ExitStats{Count: n, AvgPnl: sums[et] / float64(n)}
	}
	return out
}

func scoreBucket(score int) string {
	switch {
	case score < 40:
		return "0-40"
	case score < 60:
		return "40-60"
	case score < 80:
		return "60-80"
	default:
		return "80-100"
	}
}
