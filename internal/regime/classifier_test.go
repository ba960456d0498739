package regime

import (
	"testing"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

func fp(v float64) *float64 { return &v }

func snapWith(trend, atr, relVol float64) types.IndicatorSnapshot {
	return types.IndicatorSnapshot{
		Symbol:        "RELIANCE",
		TrendStrength: fp(trend),
		ATR:           fp(atr),
		RelVolume:     fp(relVol),
		LastClose:     100,
	}
}

func TestClassifyMarketClosed(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(60, 1, 1)}, istTime(17, 0))
	if mr.Regime != types.RegimeNoTrade {
		t.Fatalf("regime = %s, want NO_TRADE after hours", mr.Regime)
	}
	if mr.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", mr.Confidence)
	}
	if mr.Bucket != types.BucketMarketClosed {
		t.Errorf("bucket = %s, want MARKET_CLOSED", mr.Bucket)
	}
}

func TestClassifyInsufficientData(t *testing.T) {
	mr := Classify(nil, istTime(10, 30))
	if mr.Regime != types.RegimeNoTrade || mr.Confidence != 50 {
		t.Fatalf("regime/conf = %s/%v, want NO_TRADE/50 on no data", mr.Regime, mr.Confidence)
	}
}

func TestClassifyTrending(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(60, 1, 1)}, istTime(10, 30))
	if mr.Regime != types.RegimeTrending {
		t.Fatalf("regime = %s, want TRENDING", mr.Regime)
	}
	if mr.Confidence != 90 {
		t.Errorf("confidence = %v, want min(90, 60+30) = 90", mr.Confidence)
	}
	if mr.Bucket != types.BucketMorningSession {
		t.Errorf("bucket = %s, want MORNING_SESSION", mr.Bucket)
	}
}

func TestClassifyExtremeVolatility(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(60, 4, 1)}, istTime(10, 30))
	if mr.Regime != types.RegimeHighVol {
		t.Fatalf("regime = %s, want HIGH_VOLATILITY when ATR%% > 3", mr.Regime)
	}
	if mr.Confidence != 85 {
		t.Errorf("confidence = %v, want 85", mr.Confidence)
	}
}

func TestClassifyRange(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(5, 1, 1)}, istTime(10, 30))
	if mr.Regime != types.RegimeRange {
		t.Fatalf("regime = %s, want RANGE for flat trend", mr.Regime)
	}
	if mr.Confidence != 70 {
		t.Errorf("confidence = %v, want 70", mr.Confidence)
	}
}

func TestClassifyTrendWithoutVolume(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(60, 1, 0.3)}, istTime(10, 30))
	if mr.Regime != types.RegimeRange || mr.Confidence != 50 {
		t.Fatalf("regime/conf = %s/%v, want weak RANGE/50 when trend lacks volume", mr.Regime, mr.Confidence)
	}
}

func TestClassifyEdgeBucketDampsConfidence(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(60, 1, 1)}, istTime(9, 30))
	if mr.Regime != types.RegimeTrending {
		t.Fatalf("regime = %s, want TRENDING", mr.Regime)
	}
	if mr.Confidence != 72 {
		t.Errorf("confidence = %v, want 90*0.8 = 72 during the open", mr.Confidence)
	}
}

func TestClassifyDryVolumeOffPrime(t *testing.T) {
	mr := Classify([]types.IndicatorSnapshot{snapWith(5, 1, 0.2)}, istTime(12, 30))
	if mr.Regime != types.RegimeNoTrade || mr.Confidence != 75 {
		t.Fatalf("regime/conf = %s/%v, want NO_TRADE/75 on dry midday volume", mr.Regime, mr.Confidence)
	}
}

func TestClassifyMissingMetricsReadUnknown(t *testing.T) {
	snap := types.IndicatorSnapshot{
		Symbol:        "RELIANCE",
		TrendStrength: fp(60),
		LastClose:     100,
	}
	mr := Classify([]types.IndicatorSnapshot{snap}, istTime(10, 30))

	want := map[string]bool{"volatility=UNKNOWN": false, "volume=UNKNOWN": false}
	for _, r := range mr.Reasons {
		if _, ok := want[r]; ok {
			want[r] = true
		}
		if r == "volatility=LOW" || r == "volume=DRY" {
			t.Errorf("reason %q claims a measurement with zero samples", r)
		}
	}
	for token, seen := range want {
		if !seen {
			t.Errorf("reasons %v missing %q", mr.Reasons, token)
		}
	}
}

func TestRegimeExpiry(t *testing.T) {
	now := time.Now()
	mr := types.MarketRegime{ComputedAt: now}
	if mr.Expired(now.Add(4 * time.Minute)) {
		t.Error("regime should still be valid inside the window")
	}
	if !mr.Expired(now.Add(6 * time.Minute)) {
		t.Error("regime should expire past the validity window")
	}
}
