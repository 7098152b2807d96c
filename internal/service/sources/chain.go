package sources

import (
	"context"
	"errors"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/service/breaker"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

// Source keys accepted in Request.Source and the configured order.
const (
	SourceAuto     = "auto"
	SourceTV       = "tv"
	SourceExchange = "exchange"
	SourceGeneric  = "generic"
)

// Request is one chain lookup. Source restricts the chain to a single
// adapter; empty or "auto" walks the full priority order.
type Request struct {
	Instrument string
	Timeframe  drepo.Timeframe
	Limit      int
	Source     string
}

// Result holds the winning adapter's bars. Bars is empty when every adapter
// failed; Source is then empty too.
type Result struct {
	Bars   []models.PriceBar
	Source string
}

// Entry binds an adapter to its chain key.
type Entry struct {
	Key    string
	Source drepo.BarSource
}

type link struct {
	Entry
	breaker *breaker.Breaker
}

// Chain tries adapters in priority order and returns the first non-empty
// result. Adapter failures are logged and never surface to the caller.
type Chain struct {
	links   []link
	metrics drepo.Metrics
	logger  *xlogger.Logger
}

// ChainOption configures Chain.
type ChainOption func(*chainConfig)

type chainConfig struct {
	maxFailures  int
	resetTimeout time.Duration
	metrics      drepo.Metrics
	logger       *xlogger.Logger
}

// WithBreaker enables a per-adapter circuit breaker.
func WithBreaker(maxFailures int, resetTimeout time.Duration) ChainOption {
	return func(c *chainConfig) {
		c.maxFailures = maxFailures
		c.resetTimeout = resetTimeout
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) ChainOption {
	return func(c *chainConfig) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *xlogger.Logger) ChainOption {
	return func(c *chainConfig) {
		c.logger = l
	}
}

// NewChain builds a chain over entries in the given order.
func NewChain(entries []Entry, opts ...ChainOption) *Chain {
	cfg := &chainConfig{logger: xlogger.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Chain{metrics: cfg.metrics, logger: cfg.logger}
	for _, e := range entries {
		if e.Source == nil {
			continue
		}
		l := link{Entry: e}
		if cfg.maxFailures > 0 {
			l.breaker = breaker.New(cfg.maxFailures, cfg.resetTimeout)
			name := e.Source.Name()
			l.breaker.OnStateChange = func(from, to breaker.State) {
				cfg.logger.Warn("provider breaker state change",
					xlogger.String("provider", name),
					xlogger.String("from", from.String()),
					xlogger.String("to", to.String()),
				)
			}
		}
		c.links = append(c.links, l)
	}
	return c
}

// Names lists the adapters in priority order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.links))
	for i, l := range c.links {
		out[i] = l.Source.Name()
	}
	return out
}

// Fetch walks the chain. It never fails; an empty Result means no adapter
// produced data.
func (c *Chain) Fetch(ctx context.Context, req Request) Result {
	breq := drepo.BarRequest{Instrument: req.Instrument, Timeframe: req.Timeframe, Limit: req.Limit}

	for _, l := range c.links {
		if req.Source != "" && req.Source != SourceAuto && req.Source != l.Key {
			continue
		}
		if ctx.Err() != nil {
			c.logger.Warn("chain aborted", xlogger.Error(ctx.Err()))
			break
		}
		name := l.Source.Name()

		if l.breaker != nil && !l.breaker.Allow() {
			c.logger.Warn("provider skipped, breaker open", xlogger.String("provider", name))
			c.record(name, "skipped")
			continue
		}

		start := time.Now()
		bars, err := l.Source.FetchBars(ctx, breq)
		if err == nil && len(bars) == 0 {
			err = models.Empty(name, "fetch bars")
		}
		if l.breaker != nil {
			// An empty answer is not an outage. A request the adapter does
			// not serve says nothing about its health either way.
			switch {
			case errors.Is(err, models.ErrNotApplicable):
			case errors.Is(err, models.ErrEmptyResult):
				l.breaker.Report(nil)
			default:
				l.breaker.Report(err)
			}
		}
		if c.metrics != nil {
			c.metrics.RecordLatency("fetch_"+name, time.Since(start).Seconds())
		}

		if err != nil {
			result := "error"
			switch {
			case errors.Is(err, models.ErrEmptyResult):
				result = "empty"
			case errors.Is(err, models.ErrNotApplicable):
				result = "not_applicable"
			}
			c.logger.Warn("provider failed, trying next",
				xlogger.String("provider", name),
				xlogger.String("instrument", req.Instrument),
				xlogger.String("timeframe", string(req.Timeframe)),
				xlogger.Error(err),
			)
			c.record(name, result)
			continue
		}

		c.record(name, "ok")
		c.logger.Info("bars fetched",
			xlogger.String("provider", name),
			xlogger.String("instrument", req.Instrument),
			xlogger.Int("bars", len(bars)),
		)
		return Result{Bars: normalizeBars(bars), Source: name}
	}

	c.logger.Warn("all providers failed", xlogger.String("instrument", req.Instrument))
	return Result{}
}

func (c *Chain) record(provider, result string) {
	if c.metrics != nil {
		c.metrics.RecordProviderAttempt(provider, result)
	}
}

// normalizeBars forces UTC and ascending unique timestamps.
func normalizeBars(bars []models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		b.Time = util.NaiveUTC(b.Time)
		out[i] = b
	}
	return models.SortBars(out)
}
