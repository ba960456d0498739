// Package engineobs decorates the pipeline engine with spans and timing
// logs.
package engineobs

import (
	"context"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/trace"
	"github.com/engamit83/intraday-insight/internal/types"
)

type observableEngine struct {
	inner interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(inner interfaces.Engine) interfaces.Engine {
	return &observableEngine{inner: inner}
}

func (o *observableEngine) Scan(ctx context.Context, symbol string) (*types.ScanResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Scan")
	defer span.End()

	start := time.Now()
	result, err := o.inner.Scan(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Scan failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Scan completed",
		"symbol", symbol,
		"regime", string(result.Regime.Regime),
		"final_score", result.Score.FinalScore,
		"tradable", result.Score.Tradable,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (o *observableEngine) Monitor(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.Monitor")
	defer span.End()

	start := time.Now()
	if err := o.inner.Monitor(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Monitor sweep failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
	logger.InfoSkip(ctx, 1, "Monitor sweep completed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (o *observableEngine) Learn(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "engine.Learn")
	defer span.End()

	start := time.Now()
	if err := o.inner.Learn(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Learner cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
	logger.InfoSkip(ctx, 1, "Learner cycle completed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
