package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	"MacroPull/pkg/cache"
	xlogger "MacroPull/pkg/logger"
)

// SeriesCache stores whole series under a key and answers freshness queries
// against a fixed window.
type SeriesCache struct {
	store   cache.Store
	codec   cache.Codec
	window  time.Duration
	metrics domrepo.Metrics
	logger  *xlogger.Logger
}

// NewSeriesCache creates a series cache over store.
func NewSeriesCache(store cache.Store, codec cache.Codec, window time.Duration, metrics domrepo.Metrics, logger *xlogger.Logger) *SeriesCache {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SeriesCache{store: store, codec: codec, window: window, metrics: metrics, logger: logger}
}

// LoadFresh returns the cached series when it exists, decodes cleanly and
// is younger than the window. Any other outcome is a miss.
func (c *SeriesCache) LoadFresh(ctx context.Context, key string) (models.Series, bool) {
	ok, err := c.store.Fresh(ctx, key, c.window)
	if err != nil {
		c.logger.Warn("cache freshness check failed", xlogger.String("key", key), xlogger.Error(err))
	}
	if !ok {
		c.record(key, false)
		return models.Series{}, false
	}
	s, err := c.Load(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrCacheCorrupt) {
			c.logger.Warn("cache entry corrupt, refetching", xlogger.String("key", key), xlogger.Error(err))
			if c.metrics != nil {
				c.metrics.RecordError(string(models.KindCacheCorrupt))
			}
		}
		c.record(key, false)
		return models.Series{}, false
	}
	c.record(key, true)
	return s, true
}

// Load reads the cached series regardless of age.
func (c *SeriesCache) Load(ctx context.Context, key string) (models.Series, error) {
	b, err := c.store.Get(ctx, key)
	if err != nil {
		return models.Series{}, err
	}
	pts, err := c.codec.Decode(b)
	if err != nil {
		return models.Series{}, models.NewFetchError(models.KindCacheCorrupt, "cache", key, err)
	}
	points := make([]models.MacroPoint, len(pts))
	for i, p := range pts {
		points[i] = models.MacroPoint{Time: p.Time, Value: p.Value}
	}
	return models.NewSeries(key, points), nil
}

// Save replaces the cached payload for key.
func (c *SeriesCache) Save(ctx context.Context, key string, s models.Series) error {
	pts := make([]cache.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = cache.Point{Time: p.Time, Value: p.Value}
	}
	b, err := c.codec.Encode(pts)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.store.Put(ctx, key, b); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (c *SeriesCache) record(key string, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(key, hit)
	}
}
