package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/service/align"
	"MacroPull/internal/service/sources"
	xlogger "MacroPull/pkg/logger"
)

const (
	DefaultLimit = 15000
	MaxLimit     = 50000
)

// BarFetcher is the source chain as seen by the use case.
type BarFetcher interface {
	Fetch(ctx context.Context, req sources.Request) sources.Result
}

// AcquisitionUseCase fetches bars for an instrument, optionally joins a
// macro overlay and returns the unified table.
type AcquisitionUseCase struct {
	bars    BarFetcher
	macro   domrepo.MacroProvider
	metrics domrepo.Metrics
	logger  *xlogger.Logger
	now     domrepo.Clock
}

func NewAcquisitionUseCase(bars BarFetcher, macro domrepo.MacroProvider, metrics domrepo.Metrics, logger *xlogger.Logger) *AcquisitionUseCase {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AcquisitionUseCase{bars: bars, macro: macro, metrics: metrics, logger: logger, now: time.Now}
}

type AcquireParams struct {
	Instrument string
	Timeframe  string
	Limit      int
	Source     string
	// Overlay is a macro series id; empty means no overlay.
	Overlay string
	// Column names the overlay in the table; defaults to the lower-cased id.
	Column string
	// ToTimestamp drops bars after this time when non-zero.
	ToTimestamp time.Time
}

// Acquire returns the unified table. Errors are only returned for invalid
// parameters; a table with no rows means no source had data.
func (uc *AcquisitionUseCase) Acquire(ctx context.Context, p AcquireParams) (*models.Table, error) {
	p.Instrument = strings.TrimSpace(p.Instrument)
	if p.Instrument == "" {
		return nil, fmt.Errorf("instrument required")
	}
	if p.Timeframe == "" {
		p.Timeframe = string(domrepo.DefaultTimeframe())
	}
	tf, err := domrepo.ParseTimeframe(p.Timeframe)
	if err != nil {
		return nil, err
	}
	switch p.Source {
	case "":
		p.Source = sources.SourceAuto
	case sources.SourceAuto, sources.SourceTV, sources.SourceExchange, sources.SourceGeneric:
	default:
		return nil, fmt.Errorf("unknown source %q", p.Source)
	}
	if p.Limit < 0 {
		return nil, fmt.Errorf("limit must be >= 0")
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	start := time.Now()
	res := uc.bars.Fetch(ctx, sources.Request{
		Instrument: p.Instrument,
		Timeframe:  tf,
		Limit:      p.Limit,
		Source:     p.Source,
	})
	bars := res.Bars
	if !p.ToTimestamp.IsZero() {
		bars = models.BarsUntil(bars, p.ToTimestamp)
	}

	var overlay models.Series
	column := ""
	if p.Overlay != "" && len(bars) > 0 {
		overlay = uc.macro.FetchMacro(ctx, p.Overlay)
		column = p.Column
		if column == "" {
			column = strings.ToLower(strings.ReplaceAll(p.Overlay, " ", "_"))
		}
		if overlay.Empty() {
			uc.logger.Warn("overlay unavailable, returning bars only",
				xlogger.String("instrument", p.Instrument),
				xlogger.String("overlay", p.Overlay),
			)
		}
	}

	table := align.Table(p.Instrument, string(tf), res.Source, bars, overlay, column)
	table.GeneratedAt = uc.now().UTC()

	if uc.metrics != nil {
		uc.metrics.RecordLatency("acquire", time.Since(start).Seconds())
		if table.Len() == 0 {
			uc.metrics.RecordError(string(models.KindEmptyResult))
		}
	}
	uc.logger.Info("table acquired",
		xlogger.String("instrument", p.Instrument),
		xlogger.String("timeframe", string(tf)),
		xlogger.String("source", res.Source),
		xlogger.Int("rows", table.Len()),
		xlogger.String("overlay", table.MacroColumn),
	)
	return table, nil
}
