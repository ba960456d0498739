// Package eod produces the end-of-day CSV report from closed positions:
// per-symbol trade counts, win rate and realized PnL, plus a breakdown by
// exit type.
package eod

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/engamit83/intraday-insight/internal/interfaces"
	"github.com/engamit83/intraday-insight/internal/regime"
	"github.com/engamit83/intraday-insight/internal/types"
)

// Reports become due a few minutes after the session close so the last
// monitoring sweep has finished closing positions.
const reportDue = 15*time.Hour + 40*time.Minute

type summarizer struct {
	repo interfaces.Repository
	dir  string
}

var _ interfaces.EodSummarizer = (*summarizer)(nil)

func NewSummarizer(repo interfaces.Repository, dir string) interfaces.EodSummarizer {
	if dir == "" {
		dir = reportDir()
	}
	return &summarizer{repo: repo, dir: dir}
}

func reportDir() string {
	if v := os.Getenv("EOD_REPORT_DIR"); v != "" {
		return v
	}
	return filepath.Join("reports", "eod")
}

func (s *summarizer) csvPath(t time.Time) string {
	return filepath.Join(s.dir, t.In(regime.IST).Format("2006-01-02")+".csv")
}

type symbolAgg struct {
	Symbol string
	Trades int
	Wins   int
	Pnl    float64
}

type exitAgg struct {
	ExitType types.ExitType
	Count    int
	Pnl      float64
}

func (s *summarizer) SummarizeDay(ctx context.Context, t time.Time) (string, error) {
	day := t.In(regime.IST)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, regime.IST)
	end := start.Add(24 * time.Hour)

	closed, err := s.repo.ClosedTradesSince(ctx, start)
	if err != nil {
		return "", fmt.Errorf("load closed trades: %w", err)
	}

	symbols := map[string]*symbolAgg{}
	exits := map[types.ExitType]*exitAgg{}
	for _, pos := range closed {
		if !pos.ClosedAt.Before(end) {
			continue
		}
		row := symbols[pos.Symbol]
		if row == nil {
			row = &symbolAgg{Symbol: pos.Symbol}
			symbols[pos.Symbol] = row
		}
		row.Trades++
		if pos.RealizedPnl > 0 {
			row.Wins++
		}
		row.Pnl += pos.RealizedPnl

		ex := exits[pos.ExitType]
		if ex == nil {
			ex = &exitAgg{ExitType: pos.ExitType}
			exits[pos.ExitType] = ex
		}
		ex.Count++
		ex.Pnl += pos.RealizedPnl
	}
	if len(symbols) == 0 {
		return "", nil
	}

	outPath := s.csvPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write([]string{"symbol", "trades", "wins", "win_rate_pct", "realized_pnl"}); err != nil {
		return "", err
	}
	keys := make([]string, 0, len(symbols))
	for k := range symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var totalTrades, totalWins int
	var totalPnl float64
	for _, k := range keys {
		row := symbols[k]
		if err := w.Write([]string{
			row.Symbol,
			strconv.Itoa(row.Trades),
			strconv.Itoa(row.Wins),
			fmt.Sprintf("%.1f", winRate(row.Wins, row.Trades)),
			fmt.Sprintf("%.2f", row.Pnl),
		}); err != nil {
			return "", err
		}
		totalTrades += row.Trades
		totalWins += row.Wins
		totalPnl += row.Pnl
	}
	if err := w.Write([]string{
		"TOTAL",
		strconv.Itoa(totalTrades),
		strconv.Itoa(totalWins),
		fmt.Sprintf("%.1f", winRate(totalWins, totalTrades)),
		fmt.Sprintf("%.2f", totalPnl),
	}); err != nil {
		return "", err
	}

	if err := w.Write([]string{}); err != nil {
		return "", err
	}
	if err := w.Write([]string{"exit_type", "count", "realized_pnl"}); err != nil {
		return "", err
	}
	exitKeys := make([]string, 0, len(exits))
	for k := range exits {
		exitKeys = append(exitKeys, string(k))
	}
	sort.Strings(exitKeys)
	for _, k := range exitKeys {
		ex := exits[types.ExitType(k)]
		if err := w.Write([]string{
			string(ex.ExitType),
			strconv.Itoa(ex.Count),
			fmt.Sprintf("%.2f", ex.Pnl),
		}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return outPath, w.Error()
}

func (s *summarizer) ShouldRunNow(now time.Time) (bool, string) {
	ist := now.In(regime.IST)
	due := time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, regime.IST).Add(reportDue)
	outPath := s.csvPath(ist)
	if ist.After(due) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

func winRate(wins, trades int) float64 {
	if trades == 0 {
		return 0
	}
	return float64(wins) / float64(trades) * 100
}
