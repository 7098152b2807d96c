package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/cache"
)

func TestSeriesCacheSaveAndLoadFresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore(cache.WithMemoryClock(func() time.Time { return now }))
	c := NewSeriesCache(store, cache.ParquetCodec{}, 24*time.Hour, nil, nil)
	ctx := context.Background()

	s := models.NewSeries("m2sl", []models.MacroPoint{
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1},
		{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Value: 2},
	})
	if err := c.Save(ctx, "m2sl", s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := c.LoadFresh(ctx, "m2sl")
	if !ok || got.Len() != 2 || got.Points[1].Value != 2 {
		t.Fatalf("expected fresh hit, got %+v ok=%v", got, ok)
	}

	now = now.Add(25 * time.Hour)
	if _, ok := c.LoadFresh(ctx, "m2sl"); ok {
		t.Fatalf("expected stale entry to miss")
	}
	if stale, err := c.Load(ctx, "m2sl"); err != nil || stale.Len() != 2 {
		t.Fatalf("stale entry should still load: %v", err)
	}
}

func TestSeriesCacheCorruptEntry(t *testing.T) {
	store := cache.NewMemoryStore()
	c := NewSeriesCache(store, cache.CSVCodec{}, time.Hour, nil, nil)
	ctx := context.Background()

	if err := store.Put(ctx, "bad", []byte("garbage")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := c.LoadFresh(ctx, "bad"); ok {
		t.Fatalf("corrupt entry must be a miss")
	}
	if _, err := c.Load(ctx, "bad"); !errors.Is(err, models.ErrCacheCorrupt) {
		t.Fatalf("expected cache corrupt error, got %v", err)
	}
}
