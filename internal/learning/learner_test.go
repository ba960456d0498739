package learning

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

func cohort(n, wins int, regime types.Regime, score int, closedAt time.Time) ([]types.Position, []types.Signal) {
	trades := make([]types.Position, 0, n)
	signals := make([]types.Signal, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", regime, i)
		pnl := -100.0
		if i < wins {
			pnl = 100.0
		}
		signals = append(signals, types.Signal{
			ID:         id,
			Symbol:     "RELIANCE",
			Regime:     regime,
			FinalScore: score,
			CreatedAt:  closedAt.Add(-time.Hour),
		})
		trades = append(trades, types.Position{
			ID:          fmt.Sprintf("pos-%s", id),
			SignalID:    id,
			Symbol:      "RELIANCE",
			Status:      types.PositionClosed,
			ClosedAt:    closedAt,
			RealizedPnl: pnl,
		})
	}
	return trades, signals
}

func findCondition(adjs []types.LearningAdjustment, condition string) *types.LearningAdjustment {
	for i := range adjs {
		if adjs[i].Condition == condition {
			return &adjs[i]
		}
	}
	return nil
}

func TestAnalyzeLosingTrendingCohort(t *testing.T) {
	now := time.Now()
	trades, signals := cohort(5, 1, types.RegimeTrending, 65, now.Add(-24*time.Hour))
	rules := types.DefaultRules()

	adjs := Analyze(trades, signals, rules, now)

	mult := findCondition(adjs, CondMarketMultiplier(types.RegimeTrending))
	if mult == nil {
		t.Fatal("expected a TRENDING multiplier proposal for a 20% win rate")
	}
	if mult.Original != 1.2 || math.Abs(mult.Proposed-1.1) > 1e-9 {
		t.Errorf("proposal %v -> %v, want 1.2 -> 1.1", mult.Original, mult.Proposed)
	}
	if mult.SampleSize != 5 || mult.WinRate != 20 {
		t.Errorf("sample/winrate = %d/%v, want 5/20", mult.SampleSize, mult.WinRate)
	}

	// The same trades sit in the 60-80 score bucket at 20% wins.
	thr := findCondition(adjs, CondMinScoreThreshold)
	if thr == nil {
		t.Fatal("expected a threshold proposal for the losing 60-80 bucket")
	}
	if thr.Original != 60 || thr.Proposed != 65 {
		t.Errorf("threshold proposal %v -> %v, want 60 -> 65", thr.Original, thr.Proposed)
	}
}

func TestAnalyzeRespectsMinimumSample(t *testing.T) {
	now := time.Now()
	trades, signals := cohort(4, 0, types.RegimeTrending, 65, now.Add(-24*time.Hour))

	if adjs := Analyze(trades, signals, types.DefaultRules(), now); len(adjs) != 0 {
		t.Fatalf("got %d proposals from 4 trades, want 0 under the minimum sample", len(adjs))
	}
}

func TestAnalyzeIgnoresTradesOutsideWindow(t *testing.T) {
	now := time.Now()
	trades, signals := cohort(5, 0, types.RegimeTrending, 65, now.Add(-8*24*time.Hour))

	if adjs := Analyze(trades, signals, types.DefaultRules(), now); len(adjs) != 0 {
		t.Fatalf("got %d proposals from stale trades, want 0", len(adjs))
	}
}

func TestAnalyzeWinningRangeCohort(t *testing.T) {
	now := time.Now()
	trades, signals := cohort(5, 4, types.RegimeRange, 85, now.Add(-24*time.Hour))

	adjs := Analyze(trades, signals, types.DefaultRules(), now)
	mult := findCondition(adjs, CondMarketMultiplier(types.RegimeRange))
	if mult == nil {
		t.Fatal("expected a RANGE multiplier raise for an 80% win rate")
	}
	if math.Abs(mult.Proposed-0.9) > 1e-9 {
		t.Errorf("proposed = %v, want 0.8 + 0.1", mult.Proposed)
	}
}

func TestApplyDampsTheStep(t *testing.T) {
	now := time.Now()
	rules := types.DefaultRules()
	adjs := []types.LearningAdjustment{
		{
			ID:        "a1",
			Condition: CondMinScoreThreshold,
			Original:  60,
			Proposed:  65,
			CreatedAt: now.Add(-time.Hour),
		},
		{
			ID:        "a2",
			Condition: CondMarketMultiplier(types.RegimeTrending),
			Original:  1.2,
			Proposed:  1.1,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	updated, applied := Apply(rules, adjs, now)
	if len(applied) != 2 {
		t.Fatalf("applied = %d, want 2", len(applied))
	}
	if math.Abs(updated.MinScoreThreshold-61) > 1e-9 {
		t.Errorf("threshold = %v, want 60 + (65-60)*0.2 = 61", updated.MinScoreThreshold)
	}
	if got := updated.MarketMult(types.RegimeTrending); math.Abs(got-1.18) > 1e-9 {
		t.Errorf("TRENDING mult = %v, want 1.2 + (1.1-1.2)*0.2 = 1.18", got)
	}
	for _, adj := range applied {
		if adj.AppliedAt == nil {
			t.Errorf("adjustment %s missing AppliedAt", adj.ID)
		}
	}
	if rules.MinScoreThreshold != 60 {
		t.Error("input rules must not be mutated")
	}
	if rules.MarketMult(types.RegimeTrending) != 1.2 {
		t.Error("input multiplier map must not be mutated")
	}
}

func TestApplySkipsStaleProposals(t *testing.T) {
	now := time.Now()
	adjs := []types.LearningAdjustment{{
		ID:        "old",
		Condition: CondMinScoreThreshold,
		Original:  60,
		Proposed:  65,
		CreatedAt: now.Add(-25 * time.Hour),
	}}

	updated, applied := Apply(types.DefaultRules(), adjs, now)
	if len(applied) != 0 {
		t.Fatalf("applied = %d, want 0 for a stale proposal", len(applied))
	}
	if updated.MinScoreThreshold != 60 {
		t.Errorf("threshold = %v, want untouched 60", updated.MinScoreThreshold)
	}
}

func TestApplyIgnoresUnknownConditions(t *testing.T) {
	now := time.Now()
	adjs := []types.LearningAdjustment{{
		ID:        "x",
		Condition: "something_else",
		CreatedAt: now,
	}}
	if _, applied := Apply(types.DefaultRules(), adjs, now); len(applied) != 0 {
		t.Fatal("unknown conditions must be skipped, not applied")
	}
}

func TestExitEffectiveness(t *testing.T) {
	trades := []types.Position{
		{Status: types.PositionClosed, ExitType: types.ExitTargetHit, RealizedPnl: 100},
		{Status: types.PositionClosed, ExitType: types.ExitTargetHit, RealizedPnl: 200},
		{Status: types.PositionClosed, ExitType: types.ExitStoplossHit, RealizedPnl: -50},
		{Status: types.PositionOpen, ExitType: "", RealizedPnl: 0},
	}
	stats := ExitEffectiveness(trades)
	if got := stats[types.ExitTargetHit]; got.Count != 2 || got.AvgPnl != 150 {
		t.Errorf("target stats = %+v, want count 2 avg 150", got)
	}
	if got := stats[types.ExitStoplossHit]; got.Count != 1 || got.AvgPnl != -50 {
		t.Errorf("stop stats = %+v, want count 1 avg -50", got)
	}
	if len(stats) != 2 {
		t.Errorf("stats entries = %d, want 2", len(stats))
	}
}
