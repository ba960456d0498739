package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/engamit83/intraday-insight/internal/engine"
	"github.com/engamit83/intraday-insight/internal/engine/engineobs"
	"github.com/engamit83/intraday-insight/internal/eod"
	"github.com/engamit83/intraday-insight/internal/eod/eodobs"
	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/logger"
	"github.com/engamit83/intraday-insight/internal/marketdata"
	"github.com/engamit83/intraday-insight/internal/marketdata/marketdataobs"
	"github.com/engamit83/intraday-insight/internal/storage"
	"github.com/engamit83/intraday-insight/internal/store"
	"github.com/engamit83/intraday-insight/internal/trace"
	"github.com/engamit83/intraday-insight/internal/tradelog"
)

func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "tracer init failed: %v\n", err)
	}
	return nil
}

func initializeRepository(ctx context.Context, cfg *store.Config) (interfaces.Repository, func(), error) {
	seed := cfg.SeedRules()
	if cfg.Database.Driver == "postgres" {
		repo, err := storage.OpenPostgres(seed)
		if err != nil {
			return nil, nil, err
		}
		logger.Info(ctx, "Using postgres repository")
		return repo, func() { _ = repo.Close() }, nil
	}
	logger.Warn(ctx, "Using in-memory repository, state is lost on restart")
	return storage.NewMemory(seed), func() {}, nil
}

func initializeMarketData(ctx context.Context, cfg *store.Config) interfaces.MarketData {
	limiter := marketdata.NewRateLimiter(cfg.RateLimit.MaxTokens, rateRefill(cfg))
	md := marketdata.New(marketdata.Params{
		APIKey:       os.Getenv("KITE_API_KEY"),
		AccessToken:  os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:     cfg.Exchange,
		Timeframe:    cfg.Timeframe,
		CandleSource: cfg.DataSource,
		Limiter:      limiter,
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode, entries are simulated")
	}
	if cfg.DataSource == "LIVE" {
		logger.Info(ctx, "Using live Zerodha market data")
	} else {
		logger.Info(ctx, "Using deterministic synthetic market data")
	}
	return marketdataobs.Wrap(md)
}

func initializeEngine(cfg *store.Config, repo interfaces.Repository, md interfaces.MarketData, journal *tradelog.Journal) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, repo, md, journal))
}

func initializeEOD(repo interfaces.Repository) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer(repo, ""))
}

func rateRefill(cfg *store.Config) time.Duration {
	return time.Duration(cfg.RateLimit.RefillMillis) * time.Millisecond
}

func compressOldJournals(ctx context.Context, journal *tradelog.Journal) {
	if v := os.Getenv("TRADE_JOURNAL_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := journal.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Journal compaction failed", "error", err)
		}
	}
}
