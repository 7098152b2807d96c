package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed minimum delay between consecutive calls for the
// same key. The first call for a key never waits.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  map[string]time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with the given delay.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		delay: delay,
		last:  make(map[string]time.Time),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until a call for key is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context, key string) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}
	p.mu.Lock()
	now := p.now()
	var wait time.Duration
	if last, ok := p.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < p.delay {
			wait = p.delay - elapsed
		}
	}
	p.last[key] = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
