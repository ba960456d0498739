// Package eodobs decorates an EodSummarizer with spans and timing logs.
package eodobs

import (
	"context"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/trace"
)

type observableSummarizer struct {
	inner interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableSummarizer)(nil)

func Wrap(inner interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableSummarizer{inner: inner}
}

func (o *observableSummarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	start := time.Now()
	path, err := o.inner.SummarizeDay(ctx, t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary failed", err,
			"day", t.Format("2006-01-02"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "EOD summary written",
		"day", t.Format("2006-01-02"),
		"path", path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (o *observableSummarizer) ShouldRunNow(now time.Time) (bool, string) {
	return o.inner.ShouldRunNow(now)
}
