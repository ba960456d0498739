package interfaces

import (
	"context"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

// Repository persists the decision pipeline's entities. Uniqueness
// contract: one active rule set, one state row per user/day, one snapshot
// per symbol/timeframe.
type Repository interface {
	// ActiveRules returns the single active rule set, seeding defaults
	// when none exists yet.
	ActiveRules(ctx context.Context) (types.TradingRules, error)
	// UpdateRules writes rules with an optimistic compare-and-set on
	// Version; a concurrent writer causes ErrVersionConflict.
	UpdateRules(ctx context.Context, rules types.TradingRules) (types.TradingRules, error)

	// StateForDay fetches (or initializes) the per-user/day safety state.
	StateForDay(ctx context.Context, userID, day string) (types.TradingState, error)
	// MutateState applies fn under a row-level lock so the loss counters
	// and daily PnL never lose an update.
	MutateState(ctx context.Context, userID, day string, fn func(*types.TradingState)) (types.TradingState, error)

	SaveSnapshot(ctx context.Context, snap types.IndicatorSnapshot) error
	SaveRegime(ctx context.Context, regime types.MarketRegime) error
	SaveSignal(ctx context.Context, signal types.Signal) error

	OpenPosition(ctx context.Context, pos types.Position) error
	ClosePosition(ctx context.Context, pos types.Position) error
	OpenPositions(ctx context.Context) ([]types.Position, error)
	ClosedTradesSince(ctx context.Context, since time.Time) ([]types.Position, error)

	SignalsSince(ctx context.Context, since time.Time) ([]types.Signal, error)
	SaveAdjustments(ctx context.Context, adjustments []types.LearningAdjustment) error
}
