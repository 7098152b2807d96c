package aggregate

import (
	"context"
	"sort"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/repository"
	"MacroPull/internal/service/fx"
	xlogger "MacroPull/pkg/logger"
)

// SeriesID names the composite output series.
const SeriesID = "global_m2"

// Source is one way of building the composite: where the national series
// and the FX quotes come from, and the component table that uses them.
type Source struct {
	Name       string
	Macro      drepo.MacroProvider
	FX         drepo.FXSource
	Components []Component
}

// Aggregator builds the USD-denominated global money-supply composite. Its
// sources are tried in order; the first that yields points wins.
type Aggregator struct {
	sources   []Source
	cache     *repository.SeriesCache
	cacheKey  string
	tolerance time.Duration
	metrics   drepo.Metrics
	logger    *xlogger.Logger
}

// Option configures Aggregator.
type Option func(*Aggregator)

// WithCacheKey overrides the key the composite is cached under.
func WithCacheKey(key string) Option {
	return func(a *Aggregator) { a.cacheKey = key }
}

// WithTolerance sets the FX quote tolerance.
func WithTolerance(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.tolerance = d
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *xlogger.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an aggregator over sources in priority order.
func New(sources []Source, cache *repository.SeriesCache, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:   sources,
		cache:     cache,
		cacheKey:  "global_m2_agg",
		tolerance: fx.DefaultTolerance,
		logger:    xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the configured sources in priority order.
func (a *Aggregator) Sources() []Source { return a.sources }

// FetchMacro serves the composite to the macro fetcher's sentinel route.
func (a *Aggregator) FetchMacro(ctx context.Context, _ string) models.Series {
	return a.ComputeGlobalSupply(ctx)
}

// ComputeGlobalSupply returns the composite, from cache when fresh. A result
// with no points means every source was unavailable.
func (a *Aggregator) ComputeGlobalSupply(ctx context.Context) models.Series {
	if s, ok := a.cache.LoadFresh(ctx, a.cacheKey); ok && !s.Empty() {
		a.logger.Info("global aggregate loaded from cache", xlogger.Int("points", s.Len()))
		return models.Series{ID: SeriesID, Points: s.Points}
	}

	for _, src := range a.sources {
		out, ok := a.build(ctx, src)
		if !ok {
			continue
		}
		if err := a.cache.Save(ctx, a.cacheKey, out); err != nil {
			a.logger.Error("failed to save global aggregate", xlogger.Error(err))
		}
		return out
	}

	a.logger.Error("global aggregate unavailable from every source", xlogger.Int("sources", len(a.sources)))
	if a.metrics != nil {
		a.metrics.RecordError(string(models.KindEmptyResult))
	}
	return models.Series{ID: SeriesID}
}

// build computes the composite from one source. ok is false when no
// component produced usable rows.
func (a *Aggregator) build(ctx context.Context, src Source) (models.Series, bool) {
	log := a.logger.With(xlogger.String("source", src.Name))
	start := time.Now()
	columns := make([]models.Series, 0, len(src.Components))
	skipped := 0
	for _, c := range src.Components {
		if ctx.Err() != nil {
			log.Warn("aggregate interrupted", xlogger.Error(ctx.Err()))
			return models.Series{}, false
		}
		s, ok := a.component(ctx, src, c)
		if !ok {
			skipped++
			continue
		}
		columns = append(columns, s)
	}
	if a.metrics != nil {
		a.metrics.RecordAggregateComponents(len(columns), skipped)
		a.metrics.RecordLatency("aggregate_"+src.Name, time.Since(start).Seconds())
	}

	out := Combine(SeriesID, columns)
	if out.Empty() {
		log.Warn("global aggregate source yielded nothing, trying next",
			xlogger.Int("components", len(src.Components)),
			xlogger.Int("skipped", skipped),
		)
		return models.Series{}, false
	}
	last, _ := out.Last()
	log.Info("global aggregate computed",
		xlogger.Int("components", len(columns)),
		xlogger.Int("skipped", skipped),
		xlogger.Int("points", out.Len()),
		xlogger.Float64("last", last.Value),
	)
	return out, true
}

// component fetches one column in USD. ok is false when the component has
// no usable rows.
func (a *Aggregator) component(ctx context.Context, src Source, c Component) (models.Series, bool) {
	log := a.logger.With(
		xlogger.String("source", src.Name),
		xlogger.String("country", c.Country),
		xlogger.String("series", c.SeriesID),
	)

	native := src.Macro.FetchMacro(ctx, c.SeriesID)
	if native.Empty() {
		log.Warn("component skipped, no native data")
		return models.Series{}, false
	}
	native = native.Scale(c.UnitScale)
	native.ID = c.Country

	if c.Operation == models.FXNone {
		return native, true
	}

	rates, err := src.FX.FetchFX(ctx, c.FXSeries)
	if err != nil || rates.Empty() {
		log.Warn("component skipped, no fx data", xlogger.String("fx", c.FXSeries), xlogger.Error(err))
		return models.Series{}, false
	}

	usd := fx.Normalize(native, rates, c.Operation, a.tolerance)
	if usd.Empty() {
		log.Warn("component skipped, no fx quote within tolerance",
			xlogger.String("fx", c.FXSeries),
			xlogger.Duration("tolerance_ms", a.tolerance),
		)
		return models.Series{}, false
	}
	if dropped := native.Len() - usd.Len(); dropped > 0 {
		log.Debug("component points dropped without fx quote", xlogger.Int("dropped", dropped))
	}
	return usd, true
}

// Combine outer-joins columns on the union of their timestamps. Each column
// is forward-filled from its first observation; a row sums the columns
// known at that time. Non-positive sums are dropped.
func Combine(id string, columns []models.Series) models.Series {
	var stamps []time.Time
	seen := make(map[int64]struct{})
	sorted := make([][]models.MacroPoint, len(columns))
	for i, c := range columns {
		sorted[i] = models.SortPoints(c.Points)
		for _, p := range sorted[i] {
			k := p.Time.UnixNano()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			stamps = append(stamps, p.Time)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	cursor := make([]int, len(columns))
	known := make([]bool, len(columns))
	last := make([]float64, len(columns))
	out := make([]models.MacroPoint, 0, len(stamps))
	for _, t := range stamps {
		sum, have := 0.0, false
		for i, pts := range sorted {
			for cursor[i] < len(pts) && !pts[cursor[i]].Time.After(t) {
				last[i] = pts[cursor[i]].Value
				known[i] = true
				cursor[i]++
			}
			if known[i] {
				sum += last[i]
				have = true
			}
		}
		if !have || sum <= 0 {
			continue
		}
		out = append(out, models.MacroPoint{Time: t, Value: sum})
	}
	return models.Series{ID: id, Points: out}
}
