package regime

import (
	"fmt"
	"math"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

type volatilityLevel string

const (
	volLow     volatilityLevel = "LOW"
	volNormal  volatilityLevel = "NORMAL"
	volHigh    volatilityLevel = "HIGH"
	volExtreme volatilityLevel = "EXTREME"
)

type volumeLevel string

const (
	volumeDry          volumeLevel = "DRY"
	volumeBelowAverage volumeLevel = "BELOW_AVERAGE"
	volumeNormal       volumeLevel = "NORMAL"
	volumeAboveAverage volumeLevel = "ABOVE_AVERAGE"
	volumeSurge        volumeLevel = "SURGE"
)

const trendingThreshold = 20.0

// Classify aggregates the latest snapshots across tracked symbols into one
// regime. The result carries ComputedAt and expires after RegimeValidity;
// an expired regime must be treated as absent, not reused.
func Classify(snapshots []types.IndicatorSnapshot, now time.Time) types.MarketRegime {
	bucket := BucketOf(now)

	if bucket == types.BucketMarketClosed {
		return types.MarketRegime{
			Regime:     types.RegimeNoTrade,
			Confidence: 100,
			Reasons:    []string{"market closed"},
			Bucket:     bucket,
			ComputedAt: now,
		}
	}

	meanTrend, trendN := meanOf(snapshots, func(s types.IndicatorSnapshot) *float64 { return s.TrendStrength })
	meanATRPct, atrN := meanOf(snapshots, atrPercent)
	meanRelVol, volN := meanOf(snapshots, func(s types.IndicatorSnapshot) *float64 { return s.RelVolume })

	if trendN == 0 && atrN == 0 && volN == 0 {
		return types.MarketRegime{
			Regime:     types.RegimeNoTrade,
			Confidence: 50,
			Reasons:    []string{"insufficient data"},
			Bucket:     bucket,
			ComputedAt: now,
		}
	}

	vol := classifyVolatility(meanATRPct, atrN)
	vlm := classifyVolume(meanRelVol, volN)
	trending := trendN > 0 && math.Abs(meanTrend) > trendingThreshold

	// A level backed by zero samples is reported as UNKNOWN, not as a
	// measured LOW/DRY.
	volToken := string(vol)
	if atrN == 0 {
		volToken = "UNKNOWN"
	}
	vlmToken := string(vlm)
	if volN == 0 {
		vlmToken = "UNKNOWN"
	}
	trendToken := fmt.Sprintf("trend=%.1f", meanTrend)
	if trendN == 0 {
		trendToken = "trend=UNKNOWN"
	}
	reasons := []string{
		"volatility=" + volToken,
		"volume=" + vlmToken,
		trendToken,
		fmt.Sprintf("session=%s", bucket),
	}

	var regime types.Regime
	var confidence float64
	switch {
	case vol == volExtreme:
		regime, confidence = types.RegimeHighVol, 85
		reasons = append(reasons, "extreme volatility")
	case !IsOptimal(bucket) && vlm == volumeDry:
		regime, confidence = types.RegimeNoTrade, 75
		reasons = append(reasons, "dry volume outside prime session")
	case trending && volumeHealthy(vlm):
		regime = types.RegimeTrending
		confidence = math.Min(90, 60+math.Abs(meanTrend)/2)
		reasons = append(reasons, "directional trend with volume support")
	case !trending:
		regime, confidence = types.RegimeRange, 70
		reasons = append(reasons, "no directional trend")
	default:
		// Trending but without volume backing: treat as a weak range.
		regime, confidence = types.RegimeRange, 50
		reasons = append(reasons, "trend lacks volume confirmation")
	}

	if isEdgeBucket(bucket) {
		confidence *= edgeConfidenceDamp
	}

	return types.MarketRegime{
		Regime:     regime,
		Confidence: math.Round(confidence),
		Reasons:    reasons,
		Bucket:     bucket,
		ComputedAt: now,
	}
}

// atrPercent normalizes ATR by the symbol's last close so volatility is
// comparable across price levels.
func atrPercent(s types.IndicatorSnapshot) *float64 {
	if s.ATR == nil || s.LastClose == 0 {
		return nil
	}
	pct := *s.ATR / s.LastClose * 100.0
	return &pct
}

func meanOf(snapshots []types.IndicatorSnapshot, get func(types.IndicatorSnapshot) *float64) (mean float64, n int) {
	sum := 0.0
	for _, s := range snapshots {
		if v := get(s); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func classifyVolatility(atrPct float64, n int) volatilityLevel {
	switch {
	case n == 0:
		return volLow
	case atrPct > 3:
		return volExtreme
	case atrPct > 2:
		return volHigh
	case atrPct > 1:
		return volNormal
	default:
		return volLow
	}
}

func classifyVolume(relVol float64, n int) volumeLevel {
	switch {
	case n == 0:
		return volumeDry
	case relVol > 2.0:
		return volumeSurge
	case relVol > 1.2:
		return volumeAboveAverage
	case relVol > 0.8:
		return volumeNormal
	case relVol > 0.5:
		return volumeBelowAverage
	default:
		return volumeDry
	}
}

func volumeHealthy(v volumeLevel) bool {
	return v == volumeNormal || v == volumeAboveAverage || v == volumeSurge
}
