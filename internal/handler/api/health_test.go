package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"MacroPull/internal/domain/models"
)

type stubArchive struct{ err error }

func (s stubArchive) StoreTable(context.Context, *models.Table) error  { return nil }
func (s stubArchive) StoreSeries(context.Context, models.Series) error { return nil }
func (s stubArchive) Health(context.Context) error                     { return s.err }
func (s stubArchive) Close() error                                     { return nil }

func serve(t *testing.T, h *HealthHandler) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return rec
}

func TestHealthOK(t *testing.T) {
	rec := serve(t, NewHealthHandler(nil, stubArchive{}, []string{"tradingview", "binance"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data healthStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != "ok" || len(body.Data.Providers) != 2 {
		t.Fatalf("unexpected body %+v", body.Data)
	}
}

func TestHealthDegraded(t *testing.T) {
	rec := serve(t, NewHealthHandler(nil, stubArchive{err: errors.New("connection refused")}, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
