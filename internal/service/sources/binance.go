package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

// Binance is the exchange adapter. It pages klines backward from now.
type Binance struct {
	baseURL  string
	client   *xhttp.Client
	pageSize int
	maxBars  int
	logger   *xlogger.Logger
}

// NewBinance creates the exchange adapter. maxBars caps one request.
func NewBinance(baseURL string, client *xhttp.Client, pageSize, maxBars int, logger *xlogger.Logger) *Binance {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	if maxBars <= 0 {
		maxBars = 20000
	}
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Binance{baseURL: baseURL, client: client, pageSize: pageSize, maxBars: maxBars, logger: logger}
}

func (b *Binance) Name() string { return "binance" }

// FetchBars accumulates pages until the requested lookback is covered, the
// cap is reached, a short page arrives or the earliest timestamp repeats.
func (b *Binance) FetchBars(ctx context.Context, req drepo.BarRequest) ([]models.PriceBar, error) {
	if !IsPair(req.Instrument) {
		return nil, models.NotApplicable(b.Name(), "fetch bars", fmt.Errorf("%q is not an exchange pair", req.Instrument))
	}
	interval, ok := binanceIntervals[req.Timeframe]
	if !ok {
		return nil, models.NotApplicable(b.Name(), "fetch bars", fmt.Errorf("unsupported timeframe %q", req.Timeframe))
	}
	symbol := Resolve(req.Instrument, "").Binance

	target := req.Limit
	if target <= 0 {
		target = b.pageSize
	}
	if target > b.maxBars {
		target = b.maxBars
	}

	var (
		all          []models.PriceBar
		endTime      int64
		prevEarliest int64 = -1
	)
	for len(all) < target {
		want := b.pageSize
		if rest := target - len(all); rest < want {
			want = rest
		}

		page, err := b.page(ctx, symbol, interval, want, endTime)
		if err != nil {
			if len(all) == 0 {
				return nil, models.Unavailable(b.Name(), "klines", err)
			}
			b.logger.Warn("binance paging stopped early, returning partial history",
				xlogger.String("symbol", symbol),
				xlogger.Int("bars", len(all)),
				xlogger.Error(err),
			)
			break
		}
		if len(page) == 0 {
			break
		}

		earliest := page[0].Time.UnixMilli()
		if earliest == prevEarliest {
			b.logger.Debug("binance paging stalled", xlogger.String("symbol", symbol))
			break
		}
		prevEarliest = earliest

		all = append(page, all...)
		b.logger.Debug("binance page",
			xlogger.String("symbol", symbol),
			xlogger.Int("rows", len(page)),
			xlogger.Int("total", len(all)),
		)
		if len(page) < want {
			break
		}
		endTime = earliest - 1
	}

	return models.TrimBars(models.SortBars(all), target), nil
}

// page requests one page ending at endTime (ms, 0 = now), oldest first.
func (b *Binance) page(ctx context.Context, symbol, interval string, limit int, endTime int64) ([]models.PriceBar, error) {
	q := map[string][]string{
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if endTime > 0 {
		q["endTime"] = []string{strconv.FormatInt(endTime, 10)}
	}

	var raw [][]json.RawMessage
	if err := b.client.GetJSON(ctx, b.baseURL+"/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}

	out := make([]models.PriceBar, 0, len(raw))
	for _, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		out = append(out, bar)
	}
	return models.SortBars(out), nil
}

// parseKline decodes [openTime, "open", "high", "low", "close", "volume", ...].
func parseKline(k []json.RawMessage) (models.PriceBar, error) {
	if len(k) < 6 {
		return models.PriceBar{}, fmt.Errorf("kline has %d fields", len(k))
	}
	var openTime int64
	if err := json.Unmarshal(k[0], &openTime); err != nil {
		return models.PriceBar{}, fmt.Errorf("kline open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return models.PriceBar{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.PriceBar{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.PriceBar{
		Time:   util.UnixMilliUTC(openTime),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
