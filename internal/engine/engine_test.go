package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/engamit83/intraday-insight/internal/marketdata"
	"github.com/engamit83/intraday-insight/internal/storage"
	"github.com/engamit83/intraday-insight/internal/store"
	"github.com/engamit83/intraday-insight/internal/tradelog"
	"github.com/engamit83/intraday-insight/internal/types"
)

func testConfig() *store.Config {
	cfg := &store.Config{
		Mode:         "DRY_RUN",
		DataSource:   "STATIC",
		Exchange:     "NSE",
		Timeframe:    "5minute",
		CandleWindow: 40,
		UserID:       "default",
		Universe:     []string{"RELIANCE", "TCS"},
		TargetPct:    1.0,
		StoplossPct:  0.5,
	}
	cfg.Qty.Default = 1
	return cfg
}

func testEngine(t *testing.T) (*engine, *storage.MemoryRepository) {
	t.Helper()
	cfg := testConfig()
	repo := storage.NewMemory(cfg.SeedRules())
	journal := tradelog.New(t.TempDir())
	t.Cleanup(func() { journal.Close() })

	eng := New(cfg, repo, marketdata.NewStatic(cfg.Timeframe), journal).(*engine)
	return eng, repo
}

func TestScanProducesAndPersistsSignal(t *testing.T) {
	ctx := context.Background()
	eng, repo := testEngine(t)

	result, err := eng.Scan(ctx, "RELIANCE")
	if err != nil {
		t.Fatal(err)
	}
	if result.Symbol != "RELIANCE" || result.Signal == nil {
		t.Fatalf("result = %+v, want a populated signal", result)
	}
	if result.Signal.Entry <= 0 {
		t.Errorf("entry = %v, want positive", result.Signal.Entry)
	}
	if result.Regime.Regime == "" {
		t.Error("scan must always classify a regime")
	}
	if result.Signal.Tradable != result.Score.Tradable {
		t.Error("signal and score must agree on tradability")
	}
	if result.Score.Tradable != (result.Position != nil) {
		t.Error("a position opens exactly when the score is tradable")
	}

	signals, err := repo.SignalsSince(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 || signals[0].ID != result.Signal.ID {
		t.Fatalf("persisted signals = %+v", signals)
	}
}

func TestScanReusesFreshRegime(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine(t)

	a, err := eng.Scan(ctx, "RELIANCE")
	if err != nil {
		t.Fatal(err)
	}
	b, err := eng.Scan(ctx, "TCS")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Regime.ComputedAt.Equal(b.Regime.ComputedAt) {
		t.Error("second scan inside the validity window must reuse the regime")
	}
}

func TestBracket(t *testing.T) {
	eng, _ := testEngine(t)

	target, stop := eng.bracket(types.DirectionBuy, 100)
	if target != 101 || stop != 99.5 {
		t.Errorf("long bracket = %v/%v, want 101/99.5", target, stop)
	}

	target, stop = eng.bracket(types.DirectionSell, 100)
	if target != 99 || stop != 100.5 {
		t.Errorf("short bracket = %v/%v, want 99/100.5", target, stop)
	}
}

func TestSignalDirection(t *testing.T) {
	down := -40.0
	if got := signalDirection(types.IndicatorSnapshot{TrendStrength: &down}); got != types.DirectionSell {
		t.Errorf("direction = %s, want SELL on a falling trend", got)
	}
	if got := signalDirection(types.IndicatorSnapshot{}); got != types.DirectionBuy {
		t.Errorf("direction = %s, want BUY without trend data", got)
	}
}

func TestApplyStops(t *testing.T) {
	rules := types.DefaultRules()

	s := types.TradingState{AutoModeActive: true, ConsecutiveLosses: 3}
	applyStops(&s, rules)
	if s.AutoModeActive || s.StopReason != "Consecutive loss limit reached (3)" {
		t.Errorf("state = %+v, want disarmed on loss streak", s)
	}

	s = types.TradingState{AutoModeActive: true, DailyPnl: -2500}
	applyStops(&s, rules)
	if s.AutoModeActive || s.StopReason != "Daily loss limit reached" {
		t.Errorf("state = %+v, want disarmed on drawdown", s)
	}

	s = types.TradingState{AutoModeActive: true, TradesToday: 5}
	applyStops(&s, rules)
	if s.AutoModeActive || s.StopReason != "Daily trade limit reached" {
		t.Errorf("state = %+v, want disarmed at the trade cap", s)
	}

	s = types.TradingState{AutoModeActive: false, StopReason: "Daily loss limit reached", DailyPnl: -2500, TradesToday: 9}
	applyStops(&s, rules)
	if s.StopReason != "Daily loss limit reached" {
		t.Error("an already-tripped stop reason must not be rewritten")
	}
}

func TestClosePositionUpdatesState(t *testing.T) {
	ctx := context.Background()
	eng, repo := testEngine(t)
	now := time.Now()

	pos := types.Position{
		ID:         "p1",
		Symbol:     "RELIANCE",
		Direction:  types.DirectionBuy,
		EntryPrice: 100,
		Qty:        2,
		OpenedAt:   now.Add(-time.Hour),
		Status:     types.PositionOpen,
	}
	if err := repo.OpenPosition(ctx, pos); err != nil {
		t.Fatal(err)
	}

	decision := types.ExitDecision{
		ShouldExit: true,
		Type:       types.ExitStoplossHit,
		Reason:     "stoploss breached",
		Confidence: 100,
	}
	if err := eng.closePosition(ctx, pos, 99, decision, now); err != nil {
		t.Fatal(err)
	}

	open, _ := repo.OpenPositions(ctx)
	if len(open) != 0 {
		t.Fatal("position should be closed")
	}
	closed, _ := repo.ClosedTradesSince(ctx, now.Add(-time.Minute))
	if len(closed) != 1 {
		t.Fatal("closed trade missing")
	}
	if closed[0].RealizedPnl != -2 {
		t.Errorf("pnl = %v, want (99-100)*2 = -2", closed[0].RealizedPnl)
	}

	state, _ := repo.StateForDay(ctx, "default", istDay(now))
	if state.DailyPnl != -2 || state.ConsecutiveLosses != 1 {
		t.Errorf("state = %+v, want pnl -2 and one loss", state)
	}
}

func TestMonitorWithoutPositions(t *testing.T) {
	eng, _ := testEngine(t)
	if err := eng.Monitor(context.Background()); err != nil {
		t.Fatalf("empty monitor sweep should be a no-op, got %v", err)
	}
}

func TestLearnWithoutOutcomes(t *testing.T) {
	eng, _ := testEngine(t)
	if err := eng.Learn(context.Background()); err != nil {
		t.Fatalf("learner with no outcomes should be a no-op, got %v", err)
	}
}

func TestLearnAppliesDampedAdjustment(t *testing.T) {
	ctx := context.Background()
	eng, repo := testEngine(t)
	now := time.Now()

	// Five losing TRENDING trades inside the outcome window.
	for i := 0; i < 5; i++ {
		sig := types.Signal{
			ID:         fmt.Sprintf("s%d", i),
			Symbol:     "RELIANCE",
			Regime:     types.RegimeTrending,
			FinalScore: 85,
			CreatedAt:  now.Add(-2 * time.Hour),
		}
		if err := repo.SaveSignal(ctx, sig); err != nil {
			t.Fatal(err)
		}
		pos := types.Position{
			ID:         fmt.Sprintf("p%d", i),
			SignalID:   sig.ID,
			Symbol:     "RELIANCE",
			Direction:  types.DirectionBuy,
			EntryPrice: 100,
			Qty:        1,
			OpenedAt:   now.Add(-2 * time.Hour),
			Status:     types.PositionOpen,
		}
		if err := repo.OpenPosition(ctx, pos); err != nil {
			t.Fatal(err)
		}
		pos.Status = types.PositionClosed
		pos.ClosedAt = now.Add(-time.Hour)
		pos.RealizedPnl = -100
		if err := repo.ClosePosition(ctx, pos); err != nil {
			t.Fatal(err)
		}
	}

	if err := eng.Learn(ctx); err != nil {
		t.Fatal(err)
	}

	rules, _ := repo.ActiveRules(ctx)
	got := rules.MarketMult(types.RegimeTrending)
	if got >= 1.2 || got < 1.17 {
		t.Errorf("TRENDING mult = %v, want one damped step below 1.2", got)
	}
	if rules.Version != 2 {
		t.Errorf("rules version = %d, want bumped to 2", rules.Version)
	}
}
