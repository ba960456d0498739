package marketdata

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksWhenDrained(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("drained limiter should block until the context expires")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if err := rl.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := rl.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("refill took %v, want roughly one refill interval", elapsed)
	}
}
