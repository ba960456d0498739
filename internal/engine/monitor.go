package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/engamit83/intraday-insight/internal/exits"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/types"
)

// Monitor sweeps every open position, evaluates the exit ladder against
// the latest price, and finalizes positions the ladder closes. Safety
// gates that trip during the sweep disarm auto mode for the day.
func (e *engine) Monitor(ctx context.Context) error {
	now := time.Now()

	positions, err := e.repo.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}

	mr, err := e.regimeNow(ctx, now)
	if err != nil {
		return err
	}

	var firstErr error
	for _, pos := range positions {
		if err := e.monitorPosition(ctx, pos, mr, now); err != nil {
			logger.ErrorWithErr(ctx, "Position sweep failed", err, "symbol", pos.Symbol)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *engine) monitorPosition(ctx context.Context, pos types.Position, mr types.MarketRegime, now time.Time) error {
	price, err := e.md.LTP(ctx, pos.Symbol)
	if err != nil {
		return fmt.Errorf("ltp %s: %w", pos.Symbol, err)
	}

	target, stop := e.bracket(pos.Direction, pos.EntryPrice)
	decision := exits.Evaluate(pos, price, e.snapshotFor(pos.Symbol), mr, target, stop, now)
	if !decision.ShouldExit {
		return nil
	}
	return e.closePosition(ctx, pos, price, decision, now)
}

func (e *engine) closePosition(ctx context.Context, pos types.Position, price float64, decision types.ExitDecision, now time.Time) error {
	pnl, pct := pos.RealizePnl(price)
	pos.Status = types.PositionClosed
	pos.ExitPrice = price
	pos.ExitType = decision.Type
	pos.ClosedAt = now
	pos.RealizedPnl = pnl
	pos.PnlPercent = pct

	if err := e.repo.ClosePosition(ctx, pos); err != nil {
		return fmt.Errorf("close position %s: %w", pos.Symbol, err)
	}

	rules, err := e.repo.ActiveRules(ctx)
	if err != nil {
		return err
	}
	state, err := e.repo.MutateState(ctx, e.cfg.UserID, istDay(now), func(s *types.TradingState) {
		s.DailyPnl += pnl
		if pnl < 0 {
			s.ConsecutiveLosses++
		} else {
			s.ConsecutiveLosses = 0
		}
		applyStops(s, rules)
	})
	if err != nil {
		return err
	}

	if err := e.journal.Trade(pos); err != nil {
		logger.Warn(ctx, "Journal write failed", "err", err.Error())
	}
	logger.Exit(ctx, pos.Symbol, decision, pnl, "exit_price", price)
	if !state.AutoModeActive && state.StopReason != "" {
		logger.Risk(ctx, pos.Symbol, "AUTO_STOP",
			"reason", state.StopReason,
			"daily_pnl", state.DailyPnl,
			"consecutive_losses", state.ConsecutiveLosses,
		)
	}
	return nil
}

// applyStops disarms auto mode when a daily safety gate trips. The state
// stays disarmed until the day rolls over.
func applyStops(s *types.TradingState, rules types.TradingRules) {
	if !s.AutoModeActive {
		return
	}
	switch {
	case s.DailyPnl <= -rules.MaxDailyLoss:
		s.AutoModeActive = false
		s.StopReason = "Daily loss limit reached"
	case s.ConsecutiveLosses >= rules.ConsecutiveLossLimit:
		s.AutoModeActive = false
		s.StopReason = fmt.Sprintf("Consecutive loss limit reached (%d)", s.ConsecutiveLosses)
	case s.TradesToday >= rules.MaxDailyTrades:
		s.AutoModeActive = false
		s.StopReason = "Daily trade limit reached"
	}
}

func (e *engine) snapshotFor(symbol string) *types.IndicatorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if snap, ok := e.snapshots[symbol]; ok {
		return &snap
	}
	return nil
}
