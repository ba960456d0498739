package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

// SaveSnapshot upserts the single snapshot per symbol/timeframe; the
// previous snapshot is fully replaced.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, snap types.IndicatorSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO indicator_snapshots (symbol, timeframe, payload, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, timeframe) DO UPDATE
			SET payload = EXCLUDED.payload, computed_at = EXCLUDED.computed_at`,
		snap.Symbol, snap.Timeframe, payload, snap.ComputedAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveRegime(ctx context.Context, regime types.MarketRegime) error {
	reasons, err := json.Marshal(regime.Reasons)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO market_regimes (regime, confidence, reasons, bucket, computed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		regime.Regime, regime.Confidence, reasons, regime.Bucket, regime.ComputedAt)
	if err != nil {
		return fmt.Errorf("save regime: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveSignal(ctx context.Context, signal types.Signal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signals (
			id, symbol, direction, entry, target, stoploss,
			raw_score, final_score, regime, tradable, rejection_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		signal.ID, signal.Symbol, signal.Direction, signal.Entry, signal.Target,
		signal.Stoploss, signal.RawScore, signal.FinalScore, signal.Regime,
		signal.Tradable, signal.RejectionReason, signal.CreatedAt)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	return nil
}

func (r *PostgresRepository) OpenPosition(ctx context.Context, pos types.Position) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (
			id, signal_id, symbol, direction, entry_price, qty, opened_at, status
		) VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8)`,
		pos.ID, pos.SignalID, pos.Symbol, pos.Direction, pos.EntryPrice,
		pos.Qty, pos.OpenedAt, pos.Status)
	if err != nil {
		return fmt.Errorf("open position: %w", err)
	}
	return nil
}

// ClosePosition finalizes an open row; a closed position is terminal.
func (r *PostgresRepository) ClosePosition(ctx context.Context, pos types.Position) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE positions SET
			status = $1, exit_price = $2, exit_type = $3, closed_at = $4,
			realized_pnl = $5, pnl_percent = $6
		WHERE id = $7 AND status = $8`,
		types.PositionClosed, pos.ExitPrice, pos.ExitType, pos.ClosedAt,
		pos.RealizedPnl, pos.PnlPercent, pos.ID, types.PositionOpen)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("position %s: %w", pos.ID, ErrPositionNotOpen)
	}
	return nil
}

type positionRow struct {
	ID          string         `db:"id"`
	SignalID    sql.NullString `db:"signal_id"`
	Symbol      string         `db:"symbol"`
	Direction   string         `db:"direction"`
	EntryPrice  float64        `db:"entry_price"`
	Qty         int            `db:"qty"`
	OpenedAt    time.Time      `db:"opened_at"`
	Status      string         `db:"status"`
	ExitPrice   float64        `db:"exit_price"`
	ExitType    string         `db:"exit_type"`
	ClosedAt    sql.NullTime   `db:"closed_at"`
	RealizedPnl float64        `db:"realized_pnl"`
	PnlPercent  float64        `db:"pnl_percent"`
}

func (row positionRow) toPosition() types.Position {
	pos := types.Position{
		ID:          row.ID,
		Symbol:      row.Symbol,
		Direction:   types.Direction(row.Direction),
		EntryPrice:  row.EntryPrice,
		Qty:         row.Qty,
		OpenedAt:    row.OpenedAt,
		Status:      types.PositionStatus(row.Status),
		ExitPrice:   row.ExitPrice,
		ExitType:    types.ExitType(row.ExitType),
		RealizedPnl: row.RealizedPnl,
		PnlPercent:  row.PnlPercent,
	}
	if row.SignalID.Valid {
		pos.SignalID = row.SignalID.String
	}
	if row.ClosedAt.Valid {
		pos.ClosedAt = row.ClosedAt.Time
	}
	return pos
}

const positionColumns = `
	id, signal_id, symbol, direction, entry_price, qty, opened_at, status,
	exit_price, exit_type, closed_at, realized_pnl, pnl_percent`

func (r *PostgresRepository) OpenPositions(ctx context.Context) ([]types.Position, error) {
	var rows []positionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+positionColumns+` FROM positions WHERE status = $1 ORDER BY opened_at`,
		types.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	return toPositions(rows), nil
}

func (r *PostgresRepository) ClosedTradesSince(ctx context.Context, since time.Time) ([]types.Position, error) {
	var rows []positionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+positionColumns+` FROM positions WHERE status = $1 AND closed_at >= $2 ORDER BY closed_at`,
		types.PositionClosed, since)
	if err != nil {
		return nil, fmt.Errorf("closed trades: %w", err)
	}
	return toPositions(rows), nil
}

func toPositions(rows []positionRow) []types.Position {
	out := make([]types.Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toPosition())
	}
	return out
}

func (r *PostgresRepository) SignalsSince(ctx context.Context, since time.Time) ([]types.Signal, error) {
	var signals []types.Signal
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, symbol, direction, entry, target, stoploss,
		       raw_score, final_score, regime, tradable, rejection_reason, created_at
		FROM signals WHERE created_at >= $1 ORDER BY created_at`, since)
	if err != nil {
		return nil, fmt.Errorf("signals since: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s types.Signal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Direction, &s.Entry, &s.Target,
			&s.Stoploss, &s.RawScore, &s.FinalScore, &s.Regime, &s.Tradable,
			&s.RejectionReason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

func (r *PostgresRepository) SaveAdjustments(ctx context.Context, adjustments []types.LearningAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin adjustments tx: %w", err)
	}
	defer tx.Rollback()

	for _, adj := range adjustments {
		var appliedAt interface{}
		if adj.AppliedAt != nil {
			appliedAt = *adj.AppliedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO learning_adjustments (
				id, condition, original, proposed, reason,
				sample_size, win_rate, created_at, applied_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET applied_at = EXCLUDED.applied_at`,
			adj.ID, adj.Condition, adj.Original, adj.Proposed, adj.Reason,
			adj.SampleSize, adj.WinRate, adj.CreatedAt, appliedAt); err != nil {
			return fmt.Errorf("save adjustment: %w", err)
		}
	}
	return tx.Commit()
}
