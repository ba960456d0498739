// Package storage persists the pipeline's entities. The postgres
// implementation enforces the uniqueness contract (one active rule set,
// one state row per user/day, one snapshot per symbol/timeframe) and the
// locking discipline around rules and trading state.
package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/types"
)

// ErrVersionConflict means a concurrent writer updated the rules between
// read and write; the caller should re-read and retry or drop the apply.
var ErrVersionConflict = errors.New("trading rules version conflict")

// ErrPositionNotOpen means a close targeted a position that was already
// closed or never existed. Closes are terminal and never re-applied.
var ErrPositionNotOpen = errors.New("position is not open")

type PostgresRepository struct {
	db        *sqlx.DB
	seedRules types.TradingRules
}

var _ interfaces.Repository = (*PostgresRepository)(nil)

// OpenPostgres connects using DATABASE_URL and prepares the schema.
func OpenPostgres(seed types.TradingRules) (*PostgresRepository, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &PostgresRepository{db: db, seedRules: seed}
	if err := repo.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS trading_rules (
	id BIGSERIAL PRIMARY KEY,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	version BIGINT NOT NULL DEFAULT 1,
	market_multiplier JSONB NOT NULL,
	risk_one_loss DOUBLE PRECISION NOT NULL,
	risk_two_losses DOUBLE PRECISION NOT NULL,
	min_score_threshold DOUBLE PRECISION NOT NULL,
	max_daily_trades INT NOT NULL,
	max_daily_loss DOUBLE PRECISION NOT NULL,
	consecutive_loss_limit INT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS trading_rules_one_active
	ON trading_rules (active) WHERE active;

CREATE TABLE IF NOT EXISTS trading_state (
	user_id TEXT NOT NULL,
	day TEXT NOT NULL,
	trades_today INT NOT NULL DEFAULT 0,
	daily_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
	consecutive_losses INT NOT NULL DEFAULT 0,
	auto_mode_active BOOLEAN NOT NULL DEFAULT TRUE,
	stop_reason TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, day)
);

CREATE TABLE IF NOT EXISTS indicator_snapshots (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	payload JSONB NOT NULL,
	computed_at BIGINT NOT NULL,
	PRIMARY KEY (symbol, timeframe)
);

CREATE TABLE IF NOT EXISTS market_regimes (
	id BIGSERIAL PRIMARY KEY,
	regime TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	reasons JSONB NOT NULL,
	bucket TEXT NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry DOUBLE PRECISION NOT NULL,
	target DOUBLE PRECISION NOT NULL,
	stoploss DOUBLE PRECISION NOT NULL,
	raw_score INT NOT NULL,
	final_score INT NOT NULL,
	regime TEXT NOT NULL,
	tradable BOOLEAN NOT NULL,
	rejection_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id UUID PRIMARY KEY,
	signal_id UUID,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	qty INT NOT NULL,
	opened_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	exit_type TEXT NOT NULL DEFAULT '',
	closed_at TIMESTAMPTZ,
	realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
	pnl_percent DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS learning_adjustments (
	id UUID PRIMARY KEY,
	condition TEXT NOT NULL,
	original DOUBLE PRECISION NOT NULL,
	proposed DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL,
	sample_size INT NOT NULL,
	win_rate DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	applied_at TIMESTAMPTZ
);`
	_, err := r.db.Exec(schema)
	return err
}
