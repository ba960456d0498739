package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/engamit83/intraday-insight/internal/types"
)

// Domain event helpers. These always log regardless of level and attach a
// span event when a trace is active.

// Signal logs a scored signal with its tradability verdict.
func Signal(ctx context.Context, symbol string, score types.SignalScore, regime types.Regime, fields ...any) {
	addSpanEvent(ctx, "signal_scored",
		attribute.String("symbol", symbol),
		attribute.Int("raw_score", score.RawScore),
		attribute.Int("final_score", score.FinalScore),
		attribute.Bool("tradable", score.Tradable),
		attribute.String("regime", string(regime)),
	)

	all := append([]any{
		"type", "SIGNAL",
		"symbol", symbol,
		"raw_score", score.RawScore,
		"final_score", score.FinalScore,
		"regime", string(regime),
		"tradable", score.Tradable,
		"rejection_reason", score.RejectionReason,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Signal scored", 2, all...)
}

// Exit logs an exit decision for an open position.
func Exit(ctx context.Context, symbol string, decision types.ExitDecision, pnl float64, fields ...any) {
	addSpanEvent(ctx, "exit_decision",
		attribute.String("symbol", symbol),
		attribute.Bool("should_exit", decision.ShouldExit),
		attribute.String("exit_type", string(decision.Type)),
		attribute.Float64("confidence", decision.Confidence),
	)

	all := append([]any{
		"type", "EXIT",
		"symbol", symbol,
		"should_exit", decision.ShouldExit,
		"exit_type", string(decision.Type),
		"reason", decision.Reason,
		"confidence", decision.Confidence,
		"realized_pnl", pnl,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Exit evaluated", 2, all...)
}

// Risk logs a safety-gate event. Gate trips are reported, never swallowed.
func Risk(ctx context.Context, symbol, eventType string, fields ...any) {
	addSpanEvent(ctx, "risk_event",
		attribute.String("symbol", symbol),
		attribute.String("event_type", eventType),
	)

	all := append([]any{
		"type", "RISK",
		"symbol", symbol,
		"event_type", eventType,
	}, fields...)
	logWithTrace(ctx, slog.LevelWarn, "Risk event", 2, all...)
}

// Adjustment logs an applied learning adjustment.
func Adjustment(ctx context.Context, adj types.LearningAdjustment, fields ...any) {
	addSpanEvent(ctx, "rules_adjusted",
		attribute.String("condition", adj.Condition),
		attribute.Float64("original", adj.Original),
		attribute.Float64("proposed", adj.Proposed),
	)

	all := append([]any{
		"type", "LEARNING",
		"condition", adj.Condition,
		"original", adj.Original,
		"proposed", adj.Proposed,
		"sample_size", adj.SampleSize,
		"win_rate", adj.WinRate,
		"reason", adj.Reason,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Trading rules adjusted", 2, all...)
}

func addSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
