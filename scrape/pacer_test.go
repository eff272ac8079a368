package scrape

import (
	"context"
	"testing"
	"time"
)

func TestPacer_BurstThenThrottle(t *testing.T) {
	p := NewPacer(10, 2)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx, "https://example.com/p"); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	// Two burst tokens are free; the third waits ~100ms for a refill.
	if elapsed < 50*time.Millisecond {
		t.Errorf("third request not throttled, elapsed = %v", elapsed)
	}
}

func TestPacer_DomainsIsolated(t *testing.T) {
	p := NewPacer(0.001, 1) // effectively one token per domain
	ctx := context.Background()

	if err := p.Wait(ctx, "https://a.example/x"); err != nil {
		t.Fatal(err)
	}
	// A different domain has its own bucket and passes immediately.
	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx, "https://b.example/x") }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("second domain blocked on the first domain's bucket")
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	p := NewPacer(0.001, 1)
	bg := context.Background()

	if err := p.Wait(bg, "https://example.com/"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(bg, 50*time.Millisecond)
	defer cancel()
	if err := p.Wait(ctx, "https://example.com/"); err == nil {
		t.Error("exhausted bucket should surface the context error")
	}
}

func TestPacer_UnparseableURLPassesThrough(t *testing.T) {
	p := NewPacer(0.001, 1)
	if err := p.Wait(context.Background(), "not a url"); err != nil {
		t.Errorf("unparseable URL should pass through, got %v", err)
	}
}

func TestPacer_SweepDropsIdleBuckets(t *testing.T) {
	p := NewPacer(1000, 1)
	ctx := context.Background()

	_ = p.Wait(ctx, "https://example.com/")
	time.Sleep(10 * time.Millisecond) // bucket refills at 1000/s

	if removed := p.Sweep(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
