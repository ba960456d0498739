package tradelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/engamit83/intraday-insight/internal/types"
)

func journalLines(t *testing.T, dir string) []map[string]any {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var lines []map[string]any
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		for _, raw := range strings.Split(strings.TrimSpace(string(b)), "\n") {
			if raw == "" {
				continue
			}
			var m map[string]any
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				t.Fatalf("bad journal line %q: %v", raw, err)
			}
			lines = append(lines, m)
		}
	}
	return lines
}

func TestJournalWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	defer j.Close()

	err := j.Signal(types.Signal{
		ID:         "s1",
		Symbol:     "RELIANCE",
		Direction:  types.DirectionBuy,
		Entry:      100,
		FinalScore: 72,
		Regime:     types.RegimeTrending,
		Tradable:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Trade(types.Position{
		ID:          "p1",
		Symbol:      "RELIANCE",
		Direction:   types.DirectionBuy,
		EntryPrice:  100,
		Qty:         1,
		Status:      types.PositionClosed,
		ExitType:    types.ExitTargetHit,
		RealizedPnl: 50,
	}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	lines := journalLines(t, dir)
	if len(lines) != 2 {
		t.Fatalf("got %d journal lines, want 2", len(lines))
	}
	if lines[0]["msg"] != "signal" || lines[0]["symbol"] != "RELIANCE" {
		t.Errorf("first line = %v", lines[0])
	}
	if lines[1]["msg"] != "trade" || lines[1]["exit_type"] != "TARGET_HIT" {
		t.Errorf("second line = %v", lines[1])
	}
}

func TestJournalAdjustment(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	defer j.Close()

	at := time.Now()
	if err := j.Adjustment(types.LearningAdjustment{
		ID:        "a1",
		Condition: "min_score_threshold",
		Original:  60,
		Proposed:  65,
		AppliedAt: &at,
	}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	lines := journalLines(t, dir)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0]["applied"] != true {
		t.Errorf("applied = %v, want true", lines[0]["applied"])
	}
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)

	old := filepath.Join(dir, "2020-01-02.jsonl")
	if err := os.WriteFile(old, []byte(`{"msg":"signal"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	if err := j.CompressOlder(7); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old journal should be removed after compression")
	}
	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Errorf("compressed journal missing: %v", err)
	}
}

func TestCompressOlderKeepsRecent(t *testing.T) {
	dir := t.TempDir()
	j := New(dir)
	defer j.Close()

	if err := j.Signal(types.Signal{ID: "s1", Symbol: "TCS"}); err != nil {
		t.Fatal(err)
	}
	if err := j.CompressOlder(7); err != nil {
		t.Fatal(err)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".gz") {
			t.Errorf("fresh journal %s was compressed", e.Name())
		}
	}
}
