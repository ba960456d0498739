package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/engamit83/intraday-insight/internal/learning"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/storage"
)

// Learn runs one analyze+apply cycle: propose adjustments from the
// trailing outcome window, apply the fresh ones damped, and persist the
// bumped rules under the version CAS. A version conflict drops this
// cycle's application; the next cycle re-analyzes against current rules.
func (e *engine) Learn(ctx context.Context) error {
	now := time.Now()
	since := now.Add(-learning.OutcomeWindow)

	trades, err := e.repo.ClosedTradesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("learn: %w", err)
	}
	signals, err := e.repo.SignalsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("learn: %w", err)
	}
	rules, err := e.repo.ActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("learn: %w", err)
	}

	proposals := learning.Analyze(trades, signals, rules, now)
	if len(proposals) == 0 {
		logger.Debug(ctx, "Learner found nothing to adjust",
			"trades", len(trades),
			"signals", len(signals),
		)
		return nil
	}
	if err := e.repo.SaveAdjustments(ctx, proposals); err != nil {
		return fmt.Errorf("save proposals: %w", err)
	}

	updated, applied := learning.Apply(rules, proposals, now)
	if len(applied) == 0 {
		return nil
	}

	if _, err := e.repo.UpdateRules(ctx, updated); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			logger.Warn(ctx, "Rules changed mid-cycle, dropping this application",
				"version", rules.Version,
			)
			return nil
		}
		return fmt.Errorf("update rules: %w", err)
	}
	if err := e.repo.SaveAdjustments(ctx, applied); err != nil {
		return fmt.Errorf("save applied adjustments: %w", err)
	}

	for _, adj := range applied {
		logger.Adjustment(ctx, adj)
		if err := e.journal.Adjustment(adj); err != nil {
			logger.Warn(ctx, "Journal write failed", "err", err.Error())
		}
	}
	return nil
}
