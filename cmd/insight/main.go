package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/store"
	"github.com/engamit83/intraday-insight/internal/trace"
	"github.com/engamit83/intraday-insight/internal/tradelog"
)

func main() {
	if err := initializeSystem(); err != nil {
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trace.Shutdown(context.Background())

	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		os.Exit(1)
	}

	repo, closeRepo, err := initializeRepository(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open repository", err)
		os.Exit(1)
	}
	defer closeRepo()

	journal := tradelog.New("")
	defer journal.Close()
	compressOldJournals(ctx, journal)

	md := initializeMarketData(ctx, cfg)
	if err := md.Start(ctx, cfg.Universe); err != nil {
		logger.Warn(ctx, "Live tick stream unavailable, using polled data", "error", err)
	}
	defer md.Stop(context.Background())

	eng := initializeEngine(cfg, repo, md, journal)
	summarizer := initializeEOD(repo)

	run(ctx, cfg, eng, summarizer)
}

func run(ctx context.Context, cfg *store.Config, eng interfaces.Engine, summarizer interfaces.EodSummarizer) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	scanTick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer scanTick.Stop()
	eodTick := time.NewTicker(time.Minute)
	defer eodTick.Stop()

	var learnTick *time.Ticker
	var learnC <-chan time.Time
	if cfg.Learner.Enabled {
		learnTick = time.NewTicker(time.Duration(cfg.Learner.IntervalMinutes) * time.Minute)
		defer learnTick.Stop()
		learnC = learnTick.C
	}

	pacing := time.Duration(cfg.PacingMillis) * time.Millisecond
	logger.Info(ctx, "Pipeline started",
		"universe", cfg.Universe,
		"poll_seconds", cfg.PollSeconds,
		"learner_enabled", cfg.Learner.Enabled,
	)

	for {
		select {
		case <-scanTick.C:
			for _, symbol := range cfg.Universe {
				if _, err := eng.Scan(ctx, symbol); err != nil {
					logger.ErrorWithErr(ctx, "Scan failed", err, "symbol", symbol)
				}
				time.Sleep(pacing)
			}
			if err := eng.Monitor(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Monitor failed", err)
			}
		case <-learnC:
			if err := eng.Learn(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Learn failed", err)
			}
		case <-eodTick.C:
			if ok, _ := summarizer.ShouldRunNow(time.Now()); ok {
				if _, err := summarizer.SummarizeDay(ctx, time.Now()); err != nil {
					logger.ErrorWithErr(ctx, "EOD summary failed", err)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			if _, err := summarizer.SummarizeDay(ctx, time.Now()); err != nil {
				logger.ErrorWithErr(ctx, "EOD summary on shutdown failed", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
