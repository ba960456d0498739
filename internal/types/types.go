package types

import "time"

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

type Pattern string

const (
	PatternNone             Pattern = ""
	PatternHammer           Pattern = "HAMMER"
	PatternInvertedHammer   Pattern = "INVERTED_HAMMER"
	PatternShootingStar     Pattern = "SHOOTING_STAR"
	PatternBullishEngulfing Pattern = "BULLISH_ENGULFING"
	PatternBearishEngulfing Pattern = "BEARISH_ENGULFING"
	PatternDoji             Pattern = "DOJI"
)

// IndicatorSnapshot is the full indicator state for one symbol/timeframe.
// Nil metric pointers mean the supplied series was too short for that metric.
type IndicatorSnapshot struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`

	VWAP          *float64 `json:"vwap"`
	RSI           *float64 `json:"rsi"`
	MACD          *float64 `json:"macd"`
	MACDSignal    *float64 `json:"macd_signal"`
	MACDHist      *float64 `json:"macd_hist"`
	ATR           *float64 `json:"atr"`
	RelVolume     *float64 `json:"rel_volume"`
	TrendStrength *float64 `json:"trend_strength"`
	Pattern       Pattern  `json:"pattern,omitempty"`

	LastClose  float64 `json:"last_close"`
	ComputedAt int64   `json:"computed_at"`
}

type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeRange    Regime = "RANGE"
	RegimeHighVol  Regime = "HIGH_VOLATILITY"
	RegimeNoTrade  Regime = "NO_TRADE"
)

// RegimeValidity is how long a classification stays usable.
const RegimeValidity = 5 * time.Minute

type TimeBucket string

const (
	BucketMarketClosed      TimeBucket = "MARKET_CLOSED"
	BucketOpeningVolatility TimeBucket = "OPENING_VOLATILITY"
	BucketMorningSession    TimeBucket = "MORNING_SESSION"
	BucketMiddayLull        TimeBucket = "MIDDAY_LULL"
	BucketAfternoonSession  TimeBucket = "AFTERNOON_SESSION"
	BucketClosingHour       TimeBucket = "CLOSING_HOUR"
)

// MarketRegime is time-boxed: past the validity window it must be
// recomputed, never reused.
type MarketRegime struct {
	Regime     Regime     `json:"regime"`
	Confidence float64    `json:"confidence"`
	Reasons    []string   `json:"reasons"`
	Bucket     TimeBucket `json:"bucket"`
	ComputedAt time.Time  `json:"computed_at"`
}

func (m MarketRegime) Expired(now time.Time) bool {
	return now.Sub(m.ComputedAt) > RegimeValidity
}

// RiskCurve scales the risk multiplier down per consecutive loss.
type RiskCurve struct {
	OneLoss   float64 `json:"one_loss" yaml:"one_loss"`
	TwoLosses float64 `json:"two_losses" yaml:"two_losses"`
}

// TradingRules is the single active, learner-mutated parameter set.
// Version backs the optimistic compare-and-set on rule application.
type TradingRules struct {
	ID                   int64              `json:"id"`
	Version              int64              `json:"version"`
	MarketMultiplier     map[Regime]float64 `json:"market_multiplier"`
	RiskCurve            RiskCurve          `json:"risk_curve"`
	MinScoreThreshold    float64            `json:"min_score_threshold"`
	MaxDailyTrades       int                `json:"max_daily_trades"`
	MaxDailyLoss         float64            `json:"max_daily_loss"`
	ConsecutiveLossLimit int                `json:"consecutive_loss_limit"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// MarketMult returns the multiplier for a regime, 1.0 when unconfigured.
func (r TradingRules) MarketMult(regime Regime) float64 {
	if m, ok := r.MarketMultiplier[regime]; ok {
		return m
	}
	return 1.0
}

func DefaultRules() TradingRules {
	return TradingRules{
		MarketMultiplier: map[Regime]float64{
			RegimeTrending: 1.2,
			RegimeRange:    0.8,
			RegimeHighVol:  0.6,
			RegimeNoTrade:  0,
		},
		RiskCurve:            RiskCurve{OneLoss: 0.85, TwoLosses: 0.7},
		MinScoreThreshold:    60,
		MaxDailyTrades:       5,
		MaxDailyLoss:         2000,
		ConsecutiveLossLimit: 3,
	}
}

// TradingState holds the per-day safety counters. Once a loss gate trips,
// new entries stay rejected until the day rolls over or the state is
// re-armed manually.
type TradingState struct {
	UserID            string    `json:"user_id"`
	Day               string    `json:"day"`
	TradesToday       int       `json:"trades_today"`
	DailyPnl          float64   `json:"daily_pnl"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	AutoModeActive    bool      `json:"auto_mode_active"`
	StopReason        string    `json:"stop_reason,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SignalScore is the scorer's discriminated output: a non-tradable result
// always carries a rejection reason.
type SignalScore struct {
	RawScore        int     `json:"raw_score"`
	FinalScore      int     `json:"final_score"`
	MarketMult      float64 `json:"market_mult"`
	TimeMult        float64 `json:"time_mult"`
	RiskMult        float64 `json:"risk_mult"`
	Tradable        bool    `json:"tradable"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

type Signal struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	Entry           float64   `json:"entry"`
	Target          float64   `json:"target"`
	Stoploss        float64   `json:"stoploss"`
	RawScore        int       `json:"raw_score"`
	FinalScore      int       `json:"final_score"`
	Regime          Regime    `json:"regime"`
	Tradable        bool      `json:"tradable"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position is OPEN until closed; a closed position is terminal.
type Position struct {
	ID         string         `json:"id"`
	SignalID   string         `json:"signal_id,omitempty"`
	Symbol     string         `json:"symbol"`
	Direction  Direction      `json:"direction"`
	EntryPrice float64        `json:"entry_price"`
	Qty        int            `json:"qty"`
	OpenedAt   time.Time      `json:"opened_at"`
	Status     PositionStatus `json:"status"`

	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitType    ExitType  `json:"exit_type,omitempty"`
	ClosedAt    time.Time `json:"closed_at,omitempty"`
	RealizedPnl float64   `json:"realized_pnl,omitempty"`
	PnlPercent  float64   `json:"pnl_percent,omitempty"`
}

// RealizePnl computes signed PnL and percent for an exit at price.
func (p Position) RealizePnl(exitPrice float64) (pnl, pct float64) {
	sign := 1.0
	if p.Direction == DirectionSell {
		sign = -1.0
	}
	pnl = (exitPrice - p.EntryPrice) * float64(p.Qty) * sign
	if p.EntryPrice != 0 {
		pct = (exitPrice - p.EntryPrice) / p.EntryPrice * 100.0 * sign
	}
	return pnl, pct
}

type ExitType string

const (
	ExitTargetHit   ExitType = "TARGET_HIT"
	ExitStoplossHit ExitType = "STOPLOSS_HIT"
	ExitEarly       ExitType = "EARLY_EXIT"
	ExitManual      ExitType = "MANUAL"
	ExitAutoStop    ExitType = "AUTO_STOP"
)

type ExitDecision struct {
	ShouldExit bool     `json:"should_exit"`
	Type       ExitType `json:"type,omitempty"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// ScanResult is the outcome of one engine pass over a symbol.
type ScanResult struct {
	Symbol   string       `json:"symbol"`
	Regime   MarketRegime `json:"regime"`
	Score    SignalScore  `json:"score"`
	Signal   *Signal      `json:"signal,omitempty"`
	Position *Position    `json:"position,omitempty"`
	Price    float64      `json:"price"`
	Time     int64        `json:"time"`
}

// LearningAdjustment is one proposed rule mutation. Application is damped:
// the live value only moves partway toward Proposed.
type LearningAdjustment struct {
	ID         string     `json:"id"`
	Condition  string     `json:"condition"`
	Original   float64    `json:"original"`
	Proposed   float64    `json:"proposed"`
	Reason     string     `json:"reason"`
	SampleSize int        `json:"sample_size"`
	WinRate    float64    `json:"win_rate"`
	CreatedAt  time.Time  `json:"created_at"`
	AppliedAt  *time.Time `json:"applied_at,omitempty"`
}
