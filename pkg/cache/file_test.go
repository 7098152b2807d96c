package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFileStoreMissThenPut(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := s.Get(ctx, "M2SL"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	ok, err := s.Fresh(ctx, "M2SL", time.Hour)
	if err != nil || ok {
		t.Fatalf("missing key must not be fresh: %v %v", ok, err)
	}

	if err := s.Put(ctx, "M2SL", []byte("date,value\n")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "M2SL")
	if err != nil || string(got) != "date,value\n" {
		t.Fatalf("unexpected payload %q %v", got, err)
	}
	if filepath.Base(s.Path("M2SL")) != "m2sl.csv" {
		t.Fatalf("unexpected path %s", s.Path("M2SL"))
	}
}

func TestFileStoreFreshnessWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	s, err := NewFileStore(WithDir(t.TempDir()), WithFileClock(clock))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	window := 7 * 24 * time.Hour
	if ok, _ := s.Fresh(ctx, "k", window); !ok {
		t.Fatalf("just written entry should be fresh")
	}

	now = now.Add(window + time.Minute)
	if ok, _ := s.Fresh(ctx, "k", window); ok {
		t.Fatalf("entry older than window should be stale")
	}
}

func TestFileStoreReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(WithDir(dir))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := strings.Repeat(string(rune('a'+i)), 4096)
			if err := s.Put(ctx, "shared", []byte(payload)); err != nil {
				t.Errorf("put: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 4096 || strings.Count(string(got), string(got[0])) != 4096 {
		t.Fatalf("payload is a mix of writers")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"M2SL":          "m2sl",
		"Global M2":     "global_m2",
		"global_m2_agg": "global_m2_agg",
		"EURUSD=X":      "eurusd=x",
		"BTC/USDT":      "btc_usdt",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}
