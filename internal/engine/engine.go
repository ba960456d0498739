// Package engine orchestrates the decision pipeline: indicator
// computation, regime classification, signal scoring, simulated entries,
// exit monitoring and the outcome learner.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engamit83/intraday-insight/internal/indicators"
	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/regime"
	"github.com/engamit83/intraday-insight/internal/scoring"
	"github.com/engamit83/intraday-insight/internal/store"
	"github.com/engamit83/intraday-insight/internal/ta"
	"github.com/engamit83/intraday-insight/internal/tradelog"
	"github.com/engamit83/intraday-insight/internal/types"
)

type engine struct {
	cfg     *store.Config
	repo    interfaces.Repository
	md      interfaces.MarketData
	journal *tradelog.Journal

	mu        sync.Mutex
	snapshots map[string]types.IndicatorSnapshot
	regime    types.MarketRegime
	hasRegime bool
}

var _ interfaces.Engine = (*engine)(nil)

func New(cfg *store.Config, repo interfaces.Repository, md interfaces.MarketData, journal *tradelog.Journal) interfaces.Engine {
	return &engine{
		cfg:       cfg,
		repo:      repo,
		md:        md,
		journal:   journal,
		snapshots: make(map[string]types.IndicatorSnapshot),
	}
}

// Scan evaluates one symbol: compute indicators, classify (or reuse) the
// market regime, score, and open a simulated position when the signal is
// tradable.
func (e *engine) Scan(ctx context.Context, symbol string) (*types.ScanResult, error) {
	now := time.Now()

	candles, err := e.md.RecentCandles(ctx, symbol, e.cfg.CandleWindow)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", symbol, err)
	}
	snap, err := indicators.Compute(symbol, e.cfg.Timeframe, candles)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", symbol, err)
	}
	if err := e.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	mr, err := e.currentRegime(ctx, snap, now)
	if err != nil {
		return nil, err
	}

	rules, err := e.repo.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	state, err := e.repo.StateForDay(ctx, e.cfg.UserID, istDay(now))
	if err != nil {
		return nil, err
	}

	score := scoring.Score(snap, mr, state, rules)
	signal := e.buildSignal(symbol, snap, mr, score, now)
	if err := e.repo.SaveSignal(ctx, signal); err != nil {
		return nil, err
	}
	if err := e.journal.Signal(signal); err != nil {
		logger.Warn(ctx, "Journal write failed", "err", err.Error())
	}
	logger.Signal(ctx, symbol, score, mr.Regime)

	result := &types.ScanResult{
		Symbol: symbol,
		Regime: mr,
		Score:  score,
		Signal: &signal,
		Price:  snap.LastClose,
		Time:   now.Unix(),
	}
	if !score.Tradable {
		return result, nil
	}

	pos, err := e.openPosition(ctx, signal, now)
	if err != nil {
		return nil, err
	}
	result.Position = pos
	return result, nil
}

// currentRegime folds the fresh snapshot into the cache, then reuses or
// recomputes the classification.
func (e *engine) currentRegime(ctx context.Context, snap types.IndicatorSnapshot, now time.Time) (types.MarketRegime, error) {
	e.mu.Lock()
	e.snapshots[snap.Symbol] = snap
	e.mu.Unlock()
	return e.regimeNow(ctx, now)
}

// regimeNow reuses the cached classification while it is still within its
// validity window, otherwise reclassifies over the latest snapshots.
func (e *engine) regimeNow(ctx context.Context, now time.Time) (types.MarketRegime, error) {
	e.mu.Lock()
	if e.hasRegime && !e.regime.Expired(now) {
		mr := e.regime
		e.mu.Unlock()
		return mr, nil
	}
	all := make([]types.IndicatorSnapshot, 0, len(e.snapshots))
	for _, s := range e.snapshots {
		all = append(all, s)
	}
	mr := regime.Classify(all, now)
	e.regime = mr
	e.hasRegime = true
	e.mu.Unlock()

	if err := e.repo.SaveRegime(ctx, mr); err != nil {
		return types.MarketRegime{}, err
	}
	logger.Info(ctx, "Regime classified",
		"regime", string(mr.Regime),
		"confidence", mr.Confidence,
		"bucket", string(mr.Bucket),
		"reasons", mr.Reasons,
	)
	return mr, nil
}

func (e *engine) buildSignal(symbol string, snap types.IndicatorSnapshot, mr types.MarketRegime, score types.SignalScore, now time.Time) types.Signal {
	dir := signalDirection(snap)
	target, stop := e.bracket(dir, snap.LastClose)
	return types.Signal{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Direction:       dir,
		Entry:           snap.LastClose,
		Target:          target,
		Stoploss:        stop,
		RawScore:        score.RawScore,
		FinalScore:      score.FinalScore,
		Regime:          mr.Regime,
		Tradable:        score.Tradable,
		RejectionReason: score.RejectionReason,
		CreatedAt:       now,
	}
}

// signalDirection follows the trend blend; a flat or missing trend reads
// as long, the scorer has already gated marginal setups.
func signalDirection(snap types.IndicatorSnapshot) types.Direction {
	if snap.TrendStrength != nil && *snap.TrendStrength < 0 {
		return types.DirectionSell
	}
	return types.DirectionBuy
}

// bracket derives the target/stop pair from the configured percentages.
func (e *engine) bracket(dir types.Direction, entry float64) (target, stop float64) {
	t := entry * e.cfg.TargetPct / 100.0
	s := entry * e.cfg.StoplossPct / 100.0
	if dir == types.DirectionSell {
		return ta.Round(entry-t, 2), ta.Round(entry+s, 2)
	}
	return ta.Round(entry+t, 2), ta.Round(entry-s, 2)
}

func (e *engine) openPosition(ctx context.Context, signal types.Signal, now time.Time) (*types.Position, error) {
	pos := types.Position{
		ID:         uuid.NewString(),
		SignalID:   signal.ID,
		Symbol:     signal.Symbol,
		Direction:  signal.Direction,
		EntryPrice: signal.Entry,
		Qty:        e.cfg.QtyFor(signal.Symbol),
		OpenedAt:   now,
		Status:     types.PositionOpen,
	}
	if err := e.repo.OpenPosition(ctx, pos); err != nil {
		return nil, fmt.Errorf("open position %s: %w", signal.Symbol, err)
	}
	if _, err := e.repo.MutateState(ctx, e.cfg.UserID, istDay(now), func(s *types.TradingState) {
		s.TradesToday++
	}); err != nil {
		return nil, err
	}
	if err := e.journal.Trade(pos); err != nil {
		logger.Warn(ctx, "Journal write failed", "err", err.Error())
	}
	logger.Info(ctx, "Position opened",
		"symbol", pos.Symbol,
		"direction", string(pos.Direction),
		"entry", pos.EntryPrice,
		"qty", pos.Qty,
		"target", signal.Target,
		"stoploss", signal.Stoploss,
	)
	return &pos, nil
}

func istDay(t time.Time) string {
	return t.In(regime.IST).Format("2006-01-02")
}
