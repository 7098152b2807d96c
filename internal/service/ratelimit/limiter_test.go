package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacerWaitsBetweenCalls(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration
	p := NewPacer(time.Second)
	p.now = func() time.Time { return now }
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	ctx := context.Background()
	_ = p.Wait(ctx, "fred")
	now = now.Add(300 * time.Millisecond)
	_ = p.Wait(ctx, "fred")
	_ = p.Wait(ctx, "yahoo")

	if len(slept) != 1 || slept[0] != 700*time.Millisecond {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestPacerHonoursCancel(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	_ = p.Wait(ctx, "k")
	cancel()
	if err := p.Wait(ctx, "k"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNilPacerIsNoop(t *testing.T) {
	var p *Pacer
	if err := p.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("unexpected %v", err)
	}
}
