package fx

import (
	"math"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func series(id string, vals map[int]float64) models.Series {
	var pts []models.MacroPoint
	for d, v := range vals {
		pts = append(pts, models.MacroPoint{Time: day(d), Value: v})
	}
	return models.NewSeries(id, pts)
}

func TestNormalizeMultiply(t *testing.T) {
	native := series("EU", map[int]float64{1: 100, 2: 200})
	rates := series("EURUSD=X", map[int]float64{1: 1.1, 2: 1.2})

	got := Normalize(native, rates, models.FXMultiply, 0)
	if got.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", got.Len())
	}
	if math.Abs(got.Points[0].Value-110) > 1e-9 || math.Abs(got.Points[1].Value-240) > 1e-9 {
		t.Fatalf("unexpected values %+v", got.Points)
	}
}

func TestNormalizeDivide(t *testing.T) {
	native := series("JP", map[int]float64{1: 1500})
	rates := series("JPY=X", map[int]float64{1: 150})

	got := Normalize(native, rates, models.FXDivide, 0)
	if got.Len() != 1 || got.Points[0].Value != 10 {
		t.Fatalf("unexpected %+v", got.Points)
	}
}

func TestNormalizeNoneIsIdentity(t *testing.T) {
	native := series("US", map[int]float64{1: 5, 2: 6})
	got := Normalize(native, models.Series{}, models.FXNone, 0)
	if got.Len() != 2 || got.Points[1].Value != 6 {
		t.Fatalf("unexpected %+v", got.Points)
	}
	got.Points[0].Value = 99
	if native.Points[0].Value != 5 {
		t.Fatalf("input was mutated")
	}
}

func TestNormalizeDropsPointsOutsideTolerance(t *testing.T) {
	native := series("CN", map[int]float64{1: 700, 20: 710})
	rates := series("CNY=X", map[int]float64{3: 7.0})

	got := Normalize(native, rates, models.FXDivide, 3*24*time.Hour)
	if got.Len() != 1 {
		t.Fatalf("expected only the point near a quote, got %+v", got.Points)
	}
	if !got.Points[0].Time.Equal(day(1)) || got.Points[0].Value != 100 {
		t.Fatalf("unexpected %+v", got.Points[0])
	}
}

func TestNormalizeSkipsNonPositiveRates(t *testing.T) {
	native := series("RU", map[int]float64{1: 100})
	rates := series("RUB=X", map[int]float64{1: 0})
	if got := Normalize(native, rates, models.FXDivide, DefaultTolerance); !got.Empty() {
		t.Fatalf("zero rate must drop the point, got %+v", got.Points)
	}
}

func TestNearestPrefersCloserThenEarlier(t *testing.T) {
	quotes := series("q", map[int]float64{1: 1, 3: 3, 6: 6}).Points

	if v, ok := Nearest(quotes, day(2), DefaultTolerance); !ok || v != 1 {
		t.Fatalf("tie should pick the earlier quote, got %v %v", v, ok)
	}
	if v, ok := Nearest(quotes, day(5), DefaultTolerance); !ok || v != 6 {
		t.Fatalf("expected nearest later quote, got %v %v", v, ok)
	}
	if v, ok := Nearest(quotes, day(3), 0); !ok || v != 3 {
		t.Fatalf("exact match expected, got %v %v", v, ok)
	}
	if _, ok := Nearest(quotes, day(20), 24*time.Hour); ok {
		t.Fatalf("expected no quote within tolerance")
	}
}
