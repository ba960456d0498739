package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/engamit83/intraday-insight/internal/types"
)

type Config struct {
	Mode         string   `yaml:"mode"`          // DRY_RUN or LIVE
	DataSource   string   `yaml:"data_source"`   // STATIC or LIVE
	Exchange     string   `yaml:"exchange"`      // e.g. NSE
	Timeframe    string   `yaml:"timeframe"`     // e.g. 5minute
	PollSeconds  int      `yaml:"poll_seconds"`  // scan cycle cadence
	PacingMillis int      `yaml:"pacing_millis"` // delay between symbols, for upstream rate limits
	CandleWindow int      `yaml:"candle_window"` // candles fetched per scan
	UserID       string   `yaml:"user_id"`
	Universe     []string `yaml:"universe"`

	Qty struct {
		Default   int            `yaml:"default"`
		PerSymbol map[string]int `yaml:"per_symbol"`
	} `yaml:"qty"`

	// Entry bracket, as percent of entry price.
	TargetPct   float64 `yaml:"target_pct"`
	StoplossPct float64 `yaml:"stoploss_pct"`

	Rules struct {
		MinScoreThreshold    float64            `yaml:"min_score_threshold"`
		MaxDailyTrades       int                `yaml:"max_daily_trades"`
		MaxDailyLoss         float64            `yaml:"max_daily_loss"`
		ConsecutiveLossLimit int                `yaml:"consecutive_loss_limit"`
		MarketMultiplier     map[string]float64 `yaml:"market_multiplier"`
		RiskCurve            types.RiskCurve    `yaml:"risk_curve"`
	} `yaml:"rules"`

	Learner struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"learner"`

	Database struct {
		Driver string `yaml:"driver"` // postgres or memory
	} `yaml:"database"`

	RateLimit struct {
		MaxTokens    int `yaml:"max_tokens"`
		RefillMillis int `yaml:"refill_millis"`
	} `yaml:"rate_limit"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if len(c.Universe) == 0 {
		return errors.New("universe cannot be empty")
	}
	if c.TargetPct <= 0 || c.StoplossPct <= 0 {
		return fmt.Errorf("target_pct and stoploss_pct must be positive, got %.2f/%.2f", c.TargetPct, c.StoplossPct)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("database.driver must be 'postgres' or 'memory', got '%s'", c.Database.Driver)
	}
	return nil
}

// SeedRules builds the initial rule set from config; once persisted, the
// learner owns it.
func (c *Config) SeedRules() types.TradingRules {
	rules := types.DefaultRules()
	if c.Rules.MinScoreThreshold > 0 {
		rules.MinScoreThreshold = c.Rules.MinScoreThreshold
	}
	if c.Rules.MaxDailyTrades > 0 {
		rules.MaxDailyTrades = c.Rules.MaxDailyTrades
	}
	if c.Rules.MaxDailyLoss > 0 {
		rules.MaxDailyLoss = c.Rules.MaxDailyLoss
	}
	if c.Rules.ConsecutiveLossLimit > 0 {
		rules.ConsecutiveLossLimit = c.Rules.ConsecutiveLossLimit
	}
	if c.Rules.RiskCurve.OneLoss > 0 {
		rules.RiskCurve.OneLoss = c.Rules.RiskCurve.OneLoss
	}
	if c.Rules.RiskCurve.TwoLosses > 0 {
		rules.RiskCurve.TwoLosses = c.Rules.RiskCurve.TwoLosses
	}
	for name, mult := range c.Rules.MarketMultiplier {
		rules.MarketMultiplier[types.Regime(name)] = mult
	}
	return rules
}

// QtyFor returns the per-symbol quantity, falling back to the default.
func (c *Config) QtyFor(symbol string) int {
	if q, ok := c.Qty.PerSymbol[symbol]; ok {
		return q
	}
	return c.Qty.Default
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.PacingMillis == 0 {
		c.PacingMillis = 350
	}
	if c.CandleWindow == 0 {
		c.CandleWindow = 60
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.Timeframe == "" {
		c.Timeframe = "5minute"
	}
	if c.UserID == "" {
		c.UserID = "default"
	}
	if c.Qty.Default == 0 {
		c.Qty.Default = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Learner.IntervalMinutes == 0 {
		c.Learner.IntervalMinutes = 60
	}
	if c.RateLimit.MaxTokens == 0 {
		c.RateLimit.MaxTokens = 3
	}
	if c.RateLimit.RefillMillis == 0 {
		c.RateLimit.RefillMillis = 350
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
