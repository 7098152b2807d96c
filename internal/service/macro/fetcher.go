package macro

import (
	"context"
	"errors"
	"sync"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/repository"
	"MacroPull/internal/service/ratelimit"
	xlogger "MacroPull/pkg/logger"
)

// Fetcher resolves macro series through the cache and then each source in
// order. It never fails; an empty series means nothing was available.
type Fetcher struct {
	cache   *repository.SeriesCache
	sources []drepo.MacroSource
	metrics drepo.Metrics
	pacer   *ratelimit.Pacer
	logger  *xlogger.Logger

	mu     sync.RWMutex
	routes map[string]drepo.MacroProvider
}

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithPacer spaces upstream calls per source. Cache hits are not paced.
func WithPacer(p *ratelimit.Pacer) FetcherOption {
	return func(f *Fetcher) { f.pacer = p }
}

// NewFetcher creates a fetcher. Sources are tried in the given order.
func NewFetcher(cache *repository.SeriesCache, sources []drepo.MacroSource, metrics drepo.Metrics, logger *xlogger.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = xlogger.Nop()
	}
	f := &Fetcher{
		cache:   cache,
		sources: sources,
		metrics: metrics,
		logger:  logger,
		routes:  make(map[string]drepo.MacroProvider),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Route sends requests for id to p instead of the sources. The composite
// registers itself under its sentinel id this way.
func (f *Fetcher) Route(id string, p drepo.MacroProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[id] = p
}

func (f *Fetcher) route(id string) (drepo.MacroProvider, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.routes[id]
	return p, ok
}

// FetchMacro returns the series for id.
func (f *Fetcher) FetchMacro(ctx context.Context, id string) models.Series {
	if p, ok := f.route(id); ok {
		return p.FetchMacro(ctx, id)
	}

	if s, ok := f.cache.LoadFresh(ctx, id); ok && !s.Empty() {
		f.logger.Info("macro series loaded from cache",
			xlogger.String("series", id),
			xlogger.Int("points", s.Len()),
		)
		return s
	}

	for _, src := range f.sources {
		if e, ok := src.(interface{ Enabled() bool }); ok && !e.Enabled() {
			continue
		}
		if err := f.pacer.Wait(ctx, src.Name()); err != nil {
			f.logger.Warn("macro fetch interrupted", xlogger.String("series", id), xlogger.Error(err))
			break
		}
		start := time.Now()
		s, err := src.FetchSeries(ctx, id)
		if f.metrics != nil {
			f.metrics.RecordLatency("macro_"+src.Name(), time.Since(start).Seconds())
		}
		if err == nil && s.Empty() {
			err = models.Empty(src.Name(), "fetch series")
		}
		if err != nil {
			if errors.Is(err, errNoAPIKey) {
				f.logger.Debug("macro source skipped", xlogger.String("source", src.Name()), xlogger.Error(err))
				continue
			}
			f.logger.Warn("macro source failed",
				xlogger.String("source", src.Name()),
				xlogger.String("series", id),
				xlogger.Error(err),
			)
			f.record(src.Name(), "error")
			continue
		}

		f.record(src.Name(), "ok")
		s = models.NewSeries(id, s.Points)
		if err := f.cache.Save(ctx, id, s); err != nil {
			f.logger.Error("failed to save macro cache", xlogger.String("series", id), xlogger.Error(err))
		}
		f.logger.Info("macro series fetched",
			xlogger.String("source", src.Name()),
			xlogger.String("series", id),
			xlogger.Int("points", s.Len()),
		)
		return s
	}

	f.logger.Warn("macro series unavailable from all sources", xlogger.String("series", id))
	if f.metrics != nil {
		f.metrics.RecordError(string(models.KindProviderUnavailable))
	}
	return models.Series{ID: id}
}

func (f *Fetcher) record(source, result string) {
	if f.metrics != nil {
		f.metrics.RecordProviderAttempt(source, result)
	}
}
