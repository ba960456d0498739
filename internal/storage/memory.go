package storage

import (
	"context"
	"sync"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/types"
)

// MemoryRepository keeps everything in process. Used for dry runs and
// tests; it honors the same locking and versioning contract as postgres.
type MemoryRepository struct {
	mu sync.Mutex

	rules       types.TradingRules
	rulesSeeded bool
	seedRules   types.TradingRules

	states      map[string]types.TradingState
	snapshots   map[string]types.IndicatorSnapshot
	regimes     []types.MarketRegime
	signals     []types.Signal
	positions   map[string]types.Position
	adjustments map[string]types.LearningAdjustment
}

var _ interfaces.Repository = (*MemoryRepository)(nil)

func NewMemory(seed types.TradingRules) *MemoryRepository {
	return &MemoryRepository{
		seedRules:   seed,
		states:      make(map[string]types.TradingState),
		snapshots:   make(map[string]types.IndicatorSnapshot),
		positions:   make(map[string]types.Position),
		adjustments: make(map[string]types.LearningAdjustment),
	}
}

func (r *MemoryRepository) ActiveRules(ctx context.Context) (types.TradingRules, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rulesSeeded {
		r.rules = cloneRules(r.seedRules)
		r.rules.ID = 1
		r.rules.Version = 1
		r.rules.UpdatedAt = time.Now()
		r.rulesSeeded = true
	}
	return cloneRules(r.rules), nil
}

func (r *MemoryRepository) UpdateRules(ctx context.Context, rules types.TradingRules) (types.TradingRules, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rulesSeeded && rules.Version != r.rules.Version {
		return types.TradingRules{}, ErrVersionConflict
	}
	rules.Version++
	rules.UpdatedAt = time.Now()
	r.rules = cloneRules(rules)
	r.rulesSeeded = true
	return cloneRules(rules), nil
}

func stateKey(userID, day string) string { return userID + "|" + day }

func (r *MemoryRepository) StateForDay(ctx context.Context, userID, day string) (types.TradingState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(userID, day), nil
}

func (r *MemoryRepository) stateLocked(userID, day string) types.TradingState {
	key := stateKey(userID, day)
	if s, ok := r.states[key]; ok {
		return s
	}
	s := types.TradingState{
		UserID:         userID,
		Day:            day,
		AutoModeActive: true,
		UpdatedAt:      time.Now(),
	}
	r.states[key] = s
	return s
}

func (r *MemoryRepository) MutateState(ctx context.Context, userID, day string, fn func(*types.TradingState)) (types.TradingState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stateLocked(userID, day)
	fn(&s)
	s.UpdatedAt = time.Now()
	r.states[stateKey(userID, day)] = s
	return s, nil
}

func (r *MemoryRepository) SaveSnapshot(ctx context.Context, snap types.IndicatorSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.Symbol+"|"+snap.Timeframe] = snap
	return nil
}

func (r *MemoryRepository) SaveRegime(ctx context.Context, regime types.MarketRegime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regimes = append(r.regimes, regime)
	return nil
}

func (r *MemoryRepository) SaveSignal(ctx context.Context, signal types.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal)
	return nil
}

func (r *MemoryRepository) OpenPosition(ctx context.Context, pos types.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[pos.ID] = pos
	return nil
}

func (r *MemoryRepository) ClosePosition(ctx context.Context, pos types.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.positions[pos.ID]
	if !ok || existing.Status != types.PositionOpen {
		return ErrPositionNotOpen
	}
	r.positions[pos.ID] = pos
	return nil
}

func (r *MemoryRepository) OpenPositions(ctx context.Context) ([]types.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Position
	for _, p := range r.positions {
		if p.Status == types.PositionOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ClosedTradesSince(ctx context.Context, since time.Time) ([]types.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Position
	for _, p := range r.positions {
		if p.Status == types.PositionClosed && !p.ClosedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SignalsSince(ctx context.Context, since time.Time) ([]types.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Signal
	for _, s := range r.signals {
		if !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepository) SaveAdjustments(ctx context.Context, adjustments []types.LearningAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, adj := range adjustments {
		r.adjustments[adj.ID] = adj
	}
	return nil
}

func cloneRules(rules types.TradingRules) types.TradingRules {
	out := rules
	out.MarketMultiplier = make(map[types.Regime]float64, len(rules.MarketMultiplier))
	for k, v := range rules.MarketMultiplier {
		out.MarketMultiplier[k] = v
	}
	return out
}
