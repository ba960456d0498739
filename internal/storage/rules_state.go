package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

type rulesRow struct {
	ID                   int64     `db:"id"`
	Version              int64     `db:"version"`
	MarketMultiplier     []byte    `db:"market_multiplier"`
	RiskOneLoss          float64   `db:"risk_one_loss"`
	RiskTwoLosses        float64   `db:"risk_two_losses"`
	MinScoreThreshold    float64   `db:"min_score_threshold"`
	MaxDailyTrades       int       `db:"max_daily_trades"`
	MaxDailyLoss         float64   `db:"max_daily_loss"`
	ConsecutiveLossLimit int       `db:"consecutive_loss_limit"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (row rulesRow) toRules() (types.TradingRules, error) {
	mm := map[types.Regime]float64{}
	if err := json.Unmarshal(row.MarketMultiplier, &mm); err != nil {
		return types.TradingRules{}, fmt.Errorf("decode market multipliers: %w", err)
	}
	return types.TradingRules{
		ID:                   row.ID,
		Version:              row.Version,
		MarketMultiplier:     mm,
		RiskCurve:            types.RiskCurve{OneLoss: row.RiskOneLoss, TwoLosses: row.RiskTwoLosses},
		MinScoreThreshold:    row.MinScoreThreshold,
		MaxDailyTrades:       row.MaxDailyTrades,
		MaxDailyLoss:         row.MaxDailyLoss,
		ConsecutiveLossLimit: row.ConsecutiveLossLimit,
		UpdatedAt:            row.UpdatedAt,
	}, nil
}

// ActiveRules returns the single active rule set, inserting the seed on
// first run.
func (r *PostgresRepository) ActiveRules(ctx context.Context) (types.TradingRules, error) {
	var row rulesRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, version, market_multiplier, risk_one_loss, risk_two_losses,
		       min_score_threshold, max_daily_trades, max_daily_loss,
		       consecutive_loss_limit, updated_at
		FROM trading_rules WHERE active LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return r.insertSeedRules(ctx)
	}
	if err != nil {
		return types.TradingRules{}, fmt.Errorf("load active rules: %w", err)
	}
	return row.toRules()
}

func (r *PostgresRepository) insertSeedRules(ctx context.Context) (types.TradingRules, error) {
	seed := r.seedRules
	mm, err := json.Marshal(seed.MarketMultiplier)
	if err != nil {
		return types.TradingRules{}, err
	}

	var row rulesRow
	err = r.db.GetContext(ctx, &row, `
		INSERT INTO trading_rules (
			active, version, market_multiplier, risk_one_loss, risk_two_losses,
			min_score_threshold, max_daily_trades, max_daily_loss, consecutive_loss_limit
		) VALUES (TRUE, 1, $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, market_multiplier, risk_one_loss, risk_two_losses,
		          min_score_threshold, max_daily_trades, max_daily_loss,
		          consecutive_loss_limit, updated_at`,
		mm, seed.RiskCurve.OneLoss, seed.RiskCurve.TwoLosses,
		seed.MinScoreThreshold, seed.MaxDailyTrades, seed.MaxDailyLoss, seed.ConsecutiveLossLimit)
	if err != nil {
		return types.TradingRules{}, fmt.Errorf("seed rules: %w", err)
	}
	return row.toRules()
}

// UpdateRules writes the rule set guarded by a compare-and-set on Version,
// so two concurrent analyze+apply cycles cannot interleave partial deltas.
func (r *PostgresRepository) UpdateRules(ctx context.Context, rules types.TradingRules) (types.TradingRules, error) {
	mm, err := json.Marshal(rules.MarketMultiplier)
	if err != nil {
		return types.TradingRules{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE trading_rules SET
			market_multiplier = $1,
			risk_one_loss = $2,
			risk_two_losses = $3,
			min_score_threshold = $4,
			max_daily_trades = $5,
			max_daily_loss = $6,
			consecutive_loss_limit = $7,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $8 AND version = $9`,
		mm, rules.RiskCurve.OneLoss, rules.RiskCurve.TwoLosses,
		rules.MinScoreThreshold, rules.MaxDailyTrades, rules.MaxDailyLoss,
		rules.ConsecutiveLossLimit, rules.ID, rules.Version)
	if err != nil {
		return types.TradingRules{}, fmt.Errorf("update rules: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.TradingRules{}, err
	}
	if n == 0 {
		return types.TradingRules{}, ErrVersionConflict
	}

	rules.Version++
	rules.UpdatedAt = time.Now()
	return rules, nil
}

type stateRow struct {
	UserID            string    `db:"user_id"`
	Day               string    `db:"day"`
	TradesToday       int       `db:"trades_today"`
	DailyPnl          float64   `db:"daily_pnl"`
	ConsecutiveLosses int       `db:"consecutive_losses"`
	AutoModeActive    bool      `db:"auto_mode_active"`
	StopReason        string    `db:"stop_reason"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (row stateRow) toState() types.TradingState {
	return types.TradingState{
		UserID:            row.UserID,
		Day:               row.Day,
		TradesToday:       row.TradesToday,
		DailyPnl:          row.DailyPnl,
		ConsecutiveLosses: row.ConsecutiveLosses,
		AutoModeActive:    row.AutoModeActive,
		StopReason:        row.StopReason,
		UpdatedAt:         row.UpdatedAt,
	}
}

// StateForDay fetches the per-user/day state, creating the armed default
// row for a fresh day.
func (r *PostgresRepository) StateForDay(ctx context.Context, userID, day string) (types.TradingState, error) {
	var row stateRow
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO trading_state (user_id, day) VALUES ($1, $2)
		ON CONFLICT (user_id, day) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, day, trades_today, daily_pnl, consecutive_losses,
		          auto_mode_active, stop_reason, updated_at`,
		userID, day)
	if err != nil {
		return types.TradingState{}, fmt.Errorf("state for day: %w", err)
	}
	return row.toState(), nil
}

// MutateState runs fn under SELECT ... FOR UPDATE. The loss counters and
// daily PnL are safety gates; a lost update could let a losing streak slip
// past the stop condition.
func (r *PostgresRepository) MutateState(ctx context.Context, userID, day string, fn func(*types.TradingState)) (types.TradingState, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.TradingState{}, fmt.Errorf("begin state tx: %w", err)
	}
	defer tx.Rollback()

	var row stateRow
	err = tx.GetContext(ctx, &row, `
		SELECT user_id, day, trades_today, daily_pnl, consecutive_losses,
		       auto_mode_active, stop_reason, updated_at
		FROM trading_state WHERE user_id = $1 AND day = $2 FOR UPDATE`,
		userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trading_state (user_id, day) VALUES ($1, $2)`, userID, day); err != nil {
			return types.TradingState{}, fmt.Errorf("init state row: %w", err)
		}
		row = stateRow{UserID: userID, Day: day, AutoModeActive: true}
	} else if err != nil {
		return types.TradingState{}, fmt.Errorf("lock state row: %w", err)
	}

	state := row.toState()
	fn(&state)

	_, err = tx.ExecContext(ctx, `
		UPDATE trading_state SET
			trades_today = $1, daily_pnl = $2, consecutive_losses = $3,
			auto_mode_active = $4, stop_reason = $5, updated_at = NOW()
		WHERE user_id = $6 AND day = $7`,
		state.TradesToday, state.DailyPnl, state.ConsecutiveLosses,
		state.AutoModeActive, state.StopReason, userID, day)
	if err != nil {
		return types.TradingState{}, fmt.Errorf("write state row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.TradingState{}, fmt.Errorf("commit state tx: %w", err)
	}
	state.UpdatedAt = time.Now()
	return state, nil
}
