package breaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errBoom })
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}
	called := false
	if err := b.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run while open")
	}
}

func TestBreakerHalfOpenTrialCall(t *testing.T) {
	now := time.Now()
	b := New(1, time.Minute)
	b.now = func() time.Time { return now }

	var transitions []string
	b.OnStateChange = func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) }

	_ = b.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call should run: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful trial call")
	}
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d = %s want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreakerFailedTrialCallReopens(t *testing.T) {
	now := time.Now()
	b := New(2, time.Minute)
	b.now = func() time.Time { return now }
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)
	_ = b.Execute(func() error { return errBoom })
	if b.State() != StateOpen {
		t.Fatalf("failed trial call should reopen")
	}
	if b.Allow() {
		t.Fatalf("reopened breaker must reject until timeout")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := New(2, time.Minute)
	_ = b.Execute(func() error { return errBoom })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errBoom })
	if b.State() != StateClosed {
		t.Fatalf("non-consecutive failures must not trip")
	}
}
