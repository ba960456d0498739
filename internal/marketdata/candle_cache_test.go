package marketdata

import (
	"errors"
	"testing"

	"github.com/engamit83/intraday-insight/internal/types"
)

func TestCandleCacheUpsertReplacesFormingBar(t *testing.T) {
	cc := newCandleCache()
	cc.initBuffer("RELIANCE", 10)

	cc.upsert("RELIANCE", types.Candle{Ts: 100, Close: 10})
	cc.upsert("RELIANCE", types.Candle{Ts: 100, Close: 11})
	cc.upsert("RELIANCE", types.Candle{Ts: 160, Close: 12})

	got, err := cc.getRecent("RELIANCE", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candles, want 2 (same-bar update replaces)", len(got))
	}
	if got[0].Close != 11 {
		t.Errorf("forming bar close = %v, want replaced 11", got[0].Close)
	}
}

func TestCandleCacheBounded(t *testing.T) {
	cc := newCandleCache()
	cc.initBuffer("TCS", 3)

	for i := 0; i < 5; i++ {
		cc.upsert("TCS", types.Candle{Ts: int64(i * 60), Close: float64(i)})
	}

	got, err := cc.getRecent("TCS", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candles, want bounded at 3", len(got))
	}
	if got[0].Close != 2 {
		t.Errorf("oldest kept close = %v, want 2", got[0].Close)
	}
}

func TestCandleCacheUnknownSymbol(t *testing.T) {
	cc := newCandleCache()
	if _, err := cc.getRecent("UNKNOWN", 5); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}

	// Upserts for untracked symbols are dropped, not auto-registered.
	cc.upsert("UNKNOWN", types.Candle{Ts: 1})
	if _, err := cc.getRecent("UNKNOWN", 5); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData after dropped upsert", err)
	}
}

func TestCandleCacheLatest(t *testing.T) {
	cc := newCandleCache()
	cc.initBuffer("INFY", 5)

	if _, ok := cc.latest("INFY"); ok {
		t.Fatal("empty buffer should report no latest candle")
	}
	cc.upsert("INFY", types.Candle{Ts: 100, Close: 42})
	c, ok := cc.latest("INFY")
	if !ok || c.Close != 42 {
		t.Fatalf("latest = %+v/%v, want the upserted candle", c, ok)
	}
}
