package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	xhttp "MacroPull/pkg/http"
)

// klineServer serves total hourly klines ending at a fixed time and honours
// limit and endTime like the real endpoint.
func klineServer(t *testing.T, total int, ignoreEnd bool) (*httptest.Server, *int32) {
	t.Helper()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	step := time.Hour.Milliseconds()
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/v3/klines" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" || r.URL.Query().Get("interval") != "1h" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		last := total - 1
		if end := r.URL.Query().Get("endTime"); end != "" && !ignoreEnd {
			e, _ := strconv.ParseInt(end, 10, 64)
			last = int((e - start) / step)
		}
		first := last - limit + 1
		if first < 0 {
			first = 0
		}
		rows := make([]string, 0, limit)
		for i := first; i <= last; i++ {
			ts := start + int64(i)*step
			rows = append(rows, fmt.Sprintf(`[%d,"%d","%d","%d","%d","1.5",%d]`, ts, i, i+1, i, i, ts+step-1))
		}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestBinancePagesToTarget(t *testing.T) {
	srv, calls := klineServer(t, 5000, false)
	b := NewBinance(srv.URL, xhttp.NewClient(), 1000, 20000, nil)

	bars, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "BTC/USDT", Timeframe: drepo.TF1h, Limit: 2500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2500 {
		t.Fatalf("expected 2500 bars, got %d", len(bars))
	}
	if atomic.LoadInt32(calls) != 3 {
		t.Fatalf("expected 3 pages, got %d", *calls)
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Sub(bars[i-1].Time) != time.Hour {
			t.Fatalf("gap or overlap at %d: %v -> %v", i, bars[i-1].Time, bars[i].Time)
		}
	}
	if bars[len(bars)-1].Open != 4999 {
		t.Fatalf("expected most recent bar last, got open %v", bars[len(bars)-1].Open)
	}
}

func TestBinanceStopsOnShortPage(t *testing.T) {
	srv, calls := klineServer(t, 1500, false)
	b := NewBinance(srv.URL, xhttp.NewClient(), 1000, 20000, nil)

	bars, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "BTC/USDT", Timeframe: drepo.TF1h, Limit: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1500 || atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected 1500 bars in 2 pages, got %d in %d", len(bars), *calls)
	}
}

func TestBinanceRespectsCap(t *testing.T) {
	srv, _ := klineServer(t, 5000, false)
	b := NewBinance(srv.URL, xhttp.NewClient(), 1000, 1200, nil)

	bars, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "BTC/USDT", Timeframe: drepo.TF1h, Limit: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1200 {
		t.Fatalf("expected cap of 1200, got %d", len(bars))
	}
}

func TestBinanceStopsWhenPagingStalls(t *testing.T) {
	srv, calls := klineServer(t, 5000, true)
	b := NewBinance(srv.URL, xhttp.NewClient(), 1000, 20000, nil)

	bars, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "BTC/USDT", Timeframe: drepo.TF1h, Limit: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 1000 || atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected stall after 2 calls with 1000 bars, got %d bars in %d calls", len(bars), *calls)
	}
}

func TestBinanceRejectsNonPair(t *testing.T) {
	b := NewBinance("http://127.0.0.1:0", xhttp.NewClient(), 1000, 20000, nil)
	_, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "SPY", Timeframe: drepo.TF1d})
	if !errors.Is(err, models.ErrNotApplicable) {
		t.Fatalf("expected not applicable, got %v", err)
	}
}

func TestParseKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1704067200000,"42000.1","42500","41900","42300.5","12.25",1704070799999,"0",1,"0","0","0"]]`))
	}))
	defer srv.Close()

	b := NewBinance(srv.URL, xhttp.NewClient(), 1000, 20000, nil)
	bars, err := b.FetchBars(context.Background(), drepo.BarRequest{Instrument: "BTC/USDT", Timeframe: drepo.TF1h, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.PriceBar{
		Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Open: 42000.1, High: 42500, Low: 41900, Close: 42300.5, Volume: 12.25,
	}
	if len(bars) != 1 || !bars[0].Time.Equal(want.Time) || bars[0].Close != want.Close || bars[0].Volume != want.Volume {
		t.Fatalf("unexpected bar %+v", bars)
	}
}
