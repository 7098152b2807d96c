package sources

import (
	"context"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/service/ratelimit"
	xlogger "MacroPull/pkg/logger"
)

// TVEconomics serves TradingView economic series ("ECONOMICS:USM2") and FX
// pairs ("FX_IDC:JPYUSD") as close-price series for the composite. Every
// call is a fresh chart session, so calls are paced.
type TVEconomics struct {
	tv         *TradingView
	pacer      *ratelimit.Pacer
	macroBars  int
	fxBars     int
	macroFrame string
	fxFrame    string
	logger     *xlogger.Logger
}

// NewTVEconomics wraps tv. macroBars and fxBars bound the monthly and daily
// history requested.
func NewTVEconomics(tv *TradingView, pacer *ratelimit.Pacer, macroBars, fxBars int, logger *xlogger.Logger) *TVEconomics {
	if macroBars <= 0 {
		macroBars = 500
	}
	if fxBars <= 0 {
		fxBars = 2000
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TVEconomics{
		tv:         tv,
		pacer:      pacer,
		macroBars:  macroBars,
		fxBars:     fxBars,
		macroFrame: "1M",
		fxFrame:    "1D",
		logger:     logger,
	}
}

func (e *TVEconomics) Name() string { return e.tv.Name() }

// FetchMacro returns the monthly closes of id. It never fails; an empty
// series means the symbol could not be read.
func (e *TVEconomics) FetchMacro(ctx context.Context, id string) models.Series {
	s, err := e.closes(ctx, id, e.macroFrame, e.macroBars)
	if err != nil {
		e.logger.Warn("tradingview economic series unavailable",
			xlogger.String("series", id),
			xlogger.Error(err),
		)
		return models.Series{ID: id}
	}
	return s
}

// FetchFX returns the daily closes of an FX pair.
func (e *TVEconomics) FetchFX(ctx context.Context, ticker string) (models.Series, error) {
	return e.closes(ctx, ticker, e.fxFrame, e.fxBars)
}

func (e *TVEconomics) closes(ctx context.Context, id, interval string, n int) (models.Series, error) {
	if err := e.pacer.Wait(ctx, e.Name()); err != nil {
		return models.Series{ID: id}, err
	}
	bars, err := e.tv.series(ctx, Resolve(id, e.tv.defaultExchange), interval, n)
	if err != nil {
		return models.Series{ID: id}, err
	}
	pts := make([]models.MacroPoint, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			pts = append(pts, models.MacroPoint{Time: b.Time, Value: b.Close})
		}
	}
	return models.NewSeries(id, pts), nil
}
