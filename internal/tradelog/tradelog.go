// Package tradelog keeps an append-only JSONL journal of signals, trades
// and rule adjustments, one file per IST trading day. The journal is the
// audit trail behind the structured logs: replayable, grep-friendly, and
// kept separate from operational logging.
package tradelog

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/engamit83/intraday-insight/internal/regime"
	"github.com/engamit83/intraday-insight/internal/types"
)

// Journal writes one JSON line per event into <dir>/<YYYY-MM-DD>.jsonl.
// The file rolls over at IST midnight.
type Journal struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
	log  *zap.Logger
}

func Dir() string {
	if v := os.Getenv("TRADE_JOURNAL_DIR"); v != "" {
		return v
	}
	return "journal"
}

func New(dir string) *Journal {
	if dir == "" {
		dir = Dir()
	}
	return &Journal{dir: dir}
}

func (j *Journal) loggerFor(now time.Time) (*zap.Logger, error) {
	day := now.In(regime.IST).Format("2006-01-02")
	if j.log != nil && day == j.day {
		return j.log, nil
	}

	if j.file != nil {
		_ = j.log.Sync()
		_ = j.file.Close()
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(j.dir, day+".jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(f), zapcore.InfoLevel)

	j.day = day
	j.file = f
	j.log = zap.New(core)
	return j.log, nil
}

func (j *Journal) Signal(signal types.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	log, err := j.loggerFor(time.Now())
	if err != nil {
		return err
	}
	log.Info("signal",
		zap.String("id", signal.ID),
		zap.String("symbol", signal.Symbol),
		zap.String("direction", string(signal.Direction)),
		zap.Float64("entry", signal.Entry),
		zap.Float64("target", signal.Target),
		zap.Float64("stoploss", signal.Stoploss),
		zap.Int("raw_score", signal.RawScore),
		zap.Int("final_score", signal.FinalScore),
		zap.String("regime", string(signal.Regime)),
		zap.Bool("tradable", signal.Tradable),
		zap.String("rejection_reason", signal.RejectionReason),
	)
	return nil
}

func (j *Journal) Trade(pos types.Position) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	log, err := j.loggerFor(time.Now())
	if err != nil {
		return err
	}
	log.Info("trade",
		zap.String("id", pos.ID),
		zap.String("signal_id", pos.SignalID),
		zap.String("symbol", pos.Symbol),
		zap.String("direction", string(pos.Direction)),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Int("qty", pos.Qty),
		zap.String("status", string(pos.Status)),
		zap.Float64("exit_price", pos.ExitPrice),
		zap.String("exit_type", string(pos.ExitType)),
		zap.Float64("realized_pnl", pos.RealizedPnl),
		zap.Float64("pnl_percent", pos.PnlPercent),
	)
	return nil
}

func (j *Journal) Adjustment(adj types.LearningAdjustment) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	log, err := j.loggerFor(time.Now())
	if err != nil {
		return err
	}
	applied := false
	if adj.AppliedAt != nil {
		applied = true
	}
	log.Info("adjustment",
		zap.String("id", adj.ID),
		zap.String("condition", adj.Condition),
		zap.Float64("original", adj.Original),
		zap.Float64("proposed", adj.Proposed),
		zap.String("reason", adj.Reason),
		zap.Int("sample_size", adj.SampleSize),
		zap.Float64("win_rate", adj.WinRate),
		zap.Bool("applied", applied),
	)
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	_ = j.log.Sync()
	err := j.file.Close()
	j.file = nil
	j.log = nil
	return err
}

// CompressOlder gzips journal files past the retention window and removes
// the originals. Already-compressed files are left alone.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return compressFile(p)
	})
}

func compressFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}
