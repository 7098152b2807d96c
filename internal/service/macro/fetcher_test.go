package macro

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/repository"
	"MacroPull/internal/service/ratelimit"
	"MacroPull/pkg/cache"
	xhttp "MacroPull/pkg/http"
)

const weekWindow = 7 * 24 * time.Hour

const observationsJSON = `{"observations":[
  {"date":"2024-01-01","value":"20800.1"},
  {"date":"2024-02-01","value":"."},
  {"date":"2024-03-01","value":"20900.5"}
]}`

const fredCSV = "observation_date,M2SL\n2024-01-01,20800.1\n2024-02-01,\n2024-03-01,20900.5\n2024-04-01,20950\n"

type upstream struct {
	api, csv     *httptest.Server
	apiHits      int32
	csvHits      int32
	apiStatus    int
	csvStatus    int
	lastSeriesID string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{apiStatus: http.StatusOK, csvStatus: http.StatusOK}
	u.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.apiHits, 1)
		if r.URL.Path != "/fred/series/observations" || r.URL.Query().Get("api_key") != "secret" ||
			r.URL.Query().Get("file_type") != "json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		u.lastSeriesID = r.URL.Query().Get("series_id")
		w.WriteHeader(u.apiStatus)
		_, _ = w.Write([]byte(observationsJSON))
	}))
	u.csv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.csvHits, 1)
		if r.URL.Query().Get("id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(u.csvStatus)
		_, _ = w.Write([]byte(fredCSV))
	}))
	t.Cleanup(u.api.Close)
	t.Cleanup(u.csv.Close)
	return u
}

func newFetcher(t *testing.T, u *upstream, apiKey, dir string, now func() time.Time) *Fetcher {
	t.Helper()
	opts := []cache.FileOption{cache.WithDir(dir)}
	if now != nil {
		opts = append(opts, cache.WithFileClock(now))
	}
	store, err := cache.NewFileStore(opts...)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	sc := repository.NewSeriesCache(store, cache.CSVCodec{}, weekWindow, nil, nil)
	client := xhttp.NewClient()
	return NewFetcher(sc, []drepo.MacroSource{
		NewFredAPI(u.api.URL, apiKey, client),
		NewFredCSV(u.csv.URL, client),
	}, nil, nil)
}

func TestFetchMacroFromAPIDropsMissingValues(t *testing.T) {
	u := newUpstream(t)
	f := newFetcher(t, u, "secret", t.TempDir(), nil)

	s := f.FetchMacro(context.Background(), "M2SL")
	if s.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", s.Len())
	}
	if u.lastSeriesID != "M2SL" || atomic.LoadInt32(&u.csvHits) != 0 {
		t.Fatalf("unexpected upstream usage: id=%q csv hits=%d", u.lastSeriesID, u.csvHits)
	}
	if s.Points[1].Value != 20900.5 || !s.Points[1].Time.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected point %+v", s.Points[1])
	}
}

func TestFetchMacroServedFromCacheWithinWindow(t *testing.T) {
	u := newUpstream(t)
	dir := t.TempDir()
	f := newFetcher(t, u, "secret", dir, nil)

	first := f.FetchMacro(context.Background(), "M2SL")
	second := f.FetchMacro(context.Background(), "M2SL")
	if atomic.LoadInt32(&u.apiHits) != 1 {
		t.Fatalf("expected a single upstream call, got %d", u.apiHits)
	}
	if first.Len() != second.Len() {
		t.Fatalf("cached series differs: %d vs %d", first.Len(), second.Len())
	}
	for i := range first.Points {
		if !first.Points[i].Time.Equal(second.Points[i].Time) || first.Points[i].Value != second.Points[i].Value {
			t.Fatalf("point %d differs: %+v vs %+v", i, first.Points[i], second.Points[i])
		}
	}
	if _, err := os.Stat(dir + "/m2sl.csv"); err != nil {
		t.Fatalf("expected cache file: %v", err)
	}
}

func TestFetchMacroRefreshesStaleCache(t *testing.T) {
	u := newUpstream(t)
	dir := t.TempDir()
	newFetcher(t, u, "secret", dir, nil).FetchMacro(context.Background(), "M2SL")

	later := func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	newFetcher(t, u, "secret", dir, later).FetchMacro(context.Background(), "M2SL")
	if atomic.LoadInt32(&u.apiHits) != 2 {
		t.Fatalf("expected stale cache to refetch, api hits=%d", u.apiHits)
	}
}

func TestFetchMacroPacesOnlyUpstreamCalls(t *testing.T) {
	u := newUpstream(t)
	f := newFetcher(t, u, "secret", t.TempDir(), nil)
	WithPacer(ratelimit.NewPacer(300 * time.Millisecond))(f)
	ctx := context.Background()

	f.FetchMacro(ctx, "M2SL")

	start := time.Now()
	if s := f.FetchMacro(ctx, "M2SL"); s.Empty() {
		t.Fatalf("expected cached series")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("cache hit was paced: %v", elapsed)
	}

	start = time.Now()
	f.FetchMacro(ctx, "WALCL")
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("upstream call not paced: %v", elapsed)
	}
	if atomic.LoadInt32(&u.apiHits) != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", u.apiHits)
	}
}

func TestFetchMacroWithoutKeyUsesCSV(t *testing.T) {
	u := newUpstream(t)
	f := newFetcher(t, u, "", t.TempDir(), nil)

	s := f.FetchMacro(context.Background(), "M2SL")
	if atomic.LoadInt32(&u.apiHits) != 0 {
		t.Fatalf("api must be skipped without a key")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 csv points, got %d", s.Len())
	}
}

func TestFetchMacroFallsBackToCSV(t *testing.T) {
	u := newUpstream(t)
	u.apiStatus = http.StatusInternalServerError
	f := newFetcher(t, u, "secret", t.TempDir(), nil)

	s := f.FetchMacro(context.Background(), "M2SL")
	if s.Len() != 3 || atomic.LoadInt32(&u.csvHits) != 1 {
		t.Fatalf("expected csv fallback, got %d points, %d csv hits", s.Len(), u.csvHits)
	}
}

func TestFetchMacroAllFailReturnsEmpty(t *testing.T) {
	u := newUpstream(t)
	u.apiStatus = http.StatusInternalServerError
	u.csvStatus = http.StatusNotFound
	f := newFetcher(t, u, "secret", t.TempDir(), nil)

	s := f.FetchMacro(context.Background(), "M2SL")
	if !s.Empty() || s.ID != "M2SL" {
		t.Fatalf("expected empty series, got %+v", s)
	}
}

func TestFetchMacroCorruptCacheIsMiss(t *testing.T) {
	u := newUpstream(t)
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/m2sl.csv", []byte("date,value\nnot-a-date,xx\n"), 0o644); err != nil {
		t.Fatalf("seed corrupt cache: %v", err)
	}
	f := newFetcher(t, u, "secret", dir, nil)

	s := f.FetchMacro(context.Background(), "M2SL")
	if s.Len() != 2 || atomic.LoadInt32(&u.apiHits) != 1 {
		t.Fatalf("expected refetch after corrupt cache, got %d points", s.Len())
	}
}

type staticProvider struct {
	series models.Series
	calls  int
}

func (p *staticProvider) FetchMacro(_ context.Context, _ string) models.Series {
	p.calls++
	return p.series
}

func TestFetchMacroRoutesSentinel(t *testing.T) {
	u := newUpstream(t)
	f := newFetcher(t, u, "secret", t.TempDir(), nil)
	composite := &staticProvider{series: models.NewSeries("global_m2", []models.MacroPoint{
		{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1},
	})}
	f.Route("Global M2", composite)

	s := f.FetchMacro(context.Background(), "Global M2")
	if composite.calls != 1 || s.Len() != 1 {
		t.Fatalf("sentinel not routed: calls=%d len=%d", composite.calls, s.Len())
	}
	if atomic.LoadInt32(&u.apiHits)+atomic.LoadInt32(&u.csvHits) != 0 {
		t.Fatalf("sentinel must not hit upstream")
	}
}

func TestParseFredCSV(t *testing.T) {
	pts, err := parseFredCSV([]byte("DATE,MYAGM2EZM196N\n2023-12-01,15000000000000\n2024-01-01,.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 1 || pts[0].Value != 15e12 {
		t.Fatalf("unexpected points %+v", pts)
	}
	if _, err := parseFredCSV([]byte("<html>")); err == nil {
		t.Fatalf("expected error for single-column body")
	}
}
