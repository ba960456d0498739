package exits

import (
	"strings"
	"testing"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

func fp(v float64) *float64 { return &v }

func openLong(openedAt time.Time) types.Position {
	return types.Position{
		ID:         "p1",
		Symbol:     "RELIANCE",
		Direction:  types.DirectionBuy,
		EntryPrice: 100,
		Qty:        1,
		OpenedAt:   openedAt,
		Status:     types.PositionOpen,
	}
}

func calmRegime() types.MarketRegime {
	return types.MarketRegime{
		Regime:     types.RegimeTrending,
		Bucket:     types.BucketMorningSession,
		ComputedAt: time.Now(),
	}
}

func healthySnapshot() *types.IndicatorSnapshot {
	return &types.IndicatorSnapshot{
		Symbol:        "RELIANCE",
		RSI:           fp(60),
		MACDHist:      fp(0.5),
		TrendStrength: fp(40),
		RelVolume:     fp(1.2),
		VWAP:          fp(99.5),
		LastClose:     101,
	}
}

// Target outranks everything, including exhausted momentum.
func TestTargetHitOutranksEarlyExit(t *testing.T) {
	now := time.Now()
	pos := openLong(now.Add(-90 * time.Minute))
	snap := healthySnapshot()
	snap.RSI = fp(80)

	dec := Evaluate(pos, 110, snap, calmRegime(), 110, 95, now)
	if !dec.ShouldExit || dec.Type != types.ExitTargetHit {
		t.Fatalf("decision = %+v, want TARGET_HIT", dec)
	}
	if dec.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", dec.Confidence)
	}
}

func TestStoplossHit(t *testing.T) {
	now := time.Now()
	dec := Evaluate(openLong(now), 94.9, healthySnapshot(), calmRegime(), 110, 95, now)
	if !dec.ShouldExit || dec.Type != types.ExitStoplossHit {
		t.Fatalf("decision = %+v, want STOPLOSS_HIT", dec)
	}
}

func TestShortBracketInverted(t *testing.T) {
	now := time.Now()
	pos := openLong(now)
	pos.Direction = types.DirectionSell

	dec := Evaluate(pos, 89.5, healthySnapshot(), calmRegime(), 90, 105, now)
	if !dec.ShouldExit || dec.Type != types.ExitTargetHit {
		t.Fatalf("decision = %+v, want TARGET_HIT for short at/below target", dec)
	}
}

func TestRegimeFlipForcesExit(t *testing.T) {
	now := time.Now()
	mr := calmRegime()
	mr.Regime = types.RegimeHighVol

	dec := Evaluate(openLong(now), 100.5, healthySnapshot(), mr, 110, 95, now)
	if !dec.ShouldExit || dec.Type != types.ExitEarly {
		t.Fatalf("decision = %+v, want EARLY_EXIT on regime flip", dec)
	}
	if dec.Confidence != 85 {
		t.Errorf("confidence = %v, want 85", dec.Confidence)
	}
	if !strings.Contains(dec.Reason, "HIGH_VOLATILITY") {
		t.Errorf("reason = %q, want the flipped regime named", dec.Reason)
	}
}

func TestNilSnapshotHolds(t *testing.T) {
	now := time.Now()
	dec := Evaluate(openLong(now), 100.5, nil, calmRegime(), 110, 95, now)
	if dec.ShouldExit {
		t.Fatalf("decision = %+v, want hold without indicator data", dec)
	}
}

func TestCompositeEarlyExit(t *testing.T) {
	now := time.Now()
	pos := openLong(now.Add(-70 * time.Minute))
	snap := healthySnapshot()
	snap.RelVolume = fp(0.4)

	// Stalled price (30) + dry volume (25) + long hold (15) = 70.
	dec := Evaluate(pos, 100.1, snap, calmRegime(), 110, 95, now)
	if !dec.ShouldExit || dec.Type != types.ExitEarly {
		t.Fatalf("decision = %+v, want composite EARLY_EXIT", dec)
	}
	if dec.Confidence != 90 {
		t.Errorf("confidence = %v, want min(95, 70+20) = 90", dec.Confidence)
	}
	for _, factor := range []string{"price stalled", "volume dried up", "held beyond 60m"} {
		if !strings.Contains(dec.Reason, factor) {
			t.Errorf("reason %q missing factor %q", dec.Reason, factor)
		}
	}
}

func TestHealthyPositionHolds(t *testing.T) {
	now := time.Now()
	pos := openLong(now.Add(-10 * time.Minute))

	dec := Evaluate(pos, 101, healthySnapshot(), calmRegime(), 110, 95, now)
	if dec.ShouldExit {
		t.Fatalf("decision = %+v, want hold", dec)
	}
	if dec.Confidence != 100 {
		t.Errorf("confidence = %v, want 100 with no factors fired", dec.Confidence)
	}
}

func TestMomentumWeakening(t *testing.T) {
	snap := healthySnapshot()
	snap.RSI = fp(80)
	if !momentumWeakening(snap, true) {
		t.Error("RSI 80 should weaken a long")
	}

	snap = healthySnapshot()
	snap.MACDHist = fp(-0.2)
	if !momentumWeakening(snap, true) {
		t.Error("negative histogram should weaken a long")
	}

	snap = healthySnapshot()
	snap.TrendStrength = fp(-40)
	if !momentumWeakening(snap, true) {
		t.Error("reversed trend should weaken a long")
	}

	if momentumWeakening(healthySnapshot(), true) {
		t.Error("healthy momentum should not fire")
	}
}
