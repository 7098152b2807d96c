package repository

import (
	"context"
	"time"

	"MacroPull/internal/domain/models"
)

// BarRequest describes one price history request.
type BarRequest struct {
	Instrument string
	Timeframe  Timeframe
	Limit      int
}

// BarSource is one upstream price provider in the fallback chain.
type BarSource interface {
	Name() string
	FetchBars(ctx context.Context, req BarRequest) ([]models.PriceBar, error)
}

// MacroSource is one upstream provider of macro series.
type MacroSource interface {
	Name() string
	FetchSeries(ctx context.Context, seriesID string) (models.Series, error)
}

// FXSource returns a daily quote series for an FX ticker.
type FXSource interface {
	FetchFX(ctx context.Context, ticker string) (models.Series, error)
}

// MacroProvider never fails; an empty series means nothing could be obtained.
type MacroProvider interface {
	FetchMacro(ctx context.Context, seriesID string) models.Series
}

// TablePublisher hands unified tables to downstream consumers.
type TablePublisher interface {
	PublishTable(ctx context.Context, t *models.Table) error
	Close() error
}

// SeriesArchive keeps a durable copy of produced tables and composites.
type SeriesArchive interface {
	StoreTable(ctx context.Context, t *models.Table) error
	StoreSeries(ctx context.Context, s models.Series) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordProviderAttempt(provider, result string)
	RecordCacheLookup(key string, hit bool)
	RecordAggregateComponents(used, skipped int)
	RecordTablePublished(instrument string, rows int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// Clock is injected where freshness depends on wall time.
type Clock func() time.Time
