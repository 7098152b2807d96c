package sources

import (
	"context"
	"fmt"
	"net/url"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/service/ratelimit"
	xhttp "MacroPull/pkg/http"
	"MacroPull/pkg/util"
)

// Yahoo is the generic finance adapter. It also serves daily FX quotes to
// the composite.
type Yahoo struct {
	baseURL string
	client  *xhttp.Client
	pacer   *ratelimit.Pacer
}

// YahooOption configures Yahoo.
type YahooOption func(*Yahoo)

// WithYahooPacer spaces FX quote requests.
func WithYahooPacer(p *ratelimit.Pacer) YahooOption {
	return func(y *Yahoo) { y.pacer = p }
}

// NewYahoo creates the generic finance adapter.
func NewYahoo(baseURL string, client *xhttp.Client, opts ...YahooOption) *Yahoo {
	y := &Yahoo{baseURL: baseURL, client: client}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) FetchBars(ctx context.Context, req drepo.BarRequest) ([]models.PriceBar, error) {
	q, ok := yahooQueries[req.Timeframe]
	if !ok {
		return nil, models.NotApplicable(y.Name(), "fetch bars", fmt.Errorf("unsupported timeframe %q", req.Timeframe))
	}
	bars, err := y.chart(ctx, Resolve(req.Instrument, "").Yahoo, q.Interval, q.Range)
	if err != nil {
		return nil, err
	}
	if q.Resample != "" {
		bars = Resample(bars, q.Resample)
	}
	return models.TrimBars(bars, req.Limit), nil
}

// FetchFX returns daily closes for an FX ticker such as "EURUSD=X".
func (y *Yahoo) FetchFX(ctx context.Context, ticker string) (models.Series, error) {
	if err := y.pacer.Wait(ctx, y.Name()); err != nil {
		return models.Series{ID: ticker}, err
	}
	bars, err := y.chart(ctx, ticker, "1d", "max")
	if err != nil {
		return models.Series{ID: ticker}, err
	}
	pts := make([]models.MacroPoint, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			pts = append(pts, models.MacroPoint{Time: b.Time, Value: b.Close})
		}
	}
	return models.NewSeries(ticker, pts), nil
}

func (y *Yahoo) chart(ctx context.Context, symbol, interval, rng string) ([]models.PriceBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(symbol))
	var chart yahooChart
	err := y.client.GetJSON(ctx, u, map[string][]string{
		"interval": {interval},
		"range":    {rng},
	}, &chart)
	if err != nil {
		return nil, models.Unavailable(y.Name(), "chart "+symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, models.Unavailable(y.Name(), "chart "+symbol, fmt.Errorf("api error: %s", chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, models.Empty(y.Name(), "chart "+symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar (holiday, halted session)
		}
		bars = append(bars, models.PriceBar{
			Time:   util.UnixUTC(ts),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	return models.SortBars(bars), nil
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

// Resample folds bars into tf buckets aligned to UTC midnight.
func Resample(bars []models.PriceBar, tf drepo.Timeframe) []models.PriceBar {
	size := tf.Duration()
	var out []models.PriceBar
	for _, b := range bars {
		bucket := b.Time.Truncate(size)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			cur := &out[n-1]
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		b.Time = bucket
		out = append(out, b)
	}
	return out
}
