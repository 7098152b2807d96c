package align

import (
	"testing"
	"time"

	"MacroPull/internal/domain/models"
)

func d(n int) time.Time { return time.Date(2024, 3, n, 0, 0, 0, 0, time.UTC) }

func dailyBars(from, to int) []models.PriceBar {
	var out []models.PriceBar
	for i := from; i <= to; i++ {
		out = append(out, models.PriceBar{Time: d(i), Close: float64(i)})
	}
	return out
}

func TestMergeCarriesLastValueForward(t *testing.T) {
	bars := dailyBars(1, 5)
	macro := models.NewSeries("m", []models.MacroPoint{{Time: d(3), Value: 42}})

	rows := Merge(bars, macro)
	if len(rows) != 5 {
		t.Fatalf("row count %d != 5", len(rows))
	}
	for i := 0; i < 2; i++ {
		if rows[i].Macro != nil {
			t.Fatalf("day %d must have no macro value", i+1)
		}
	}
	for i := 2; i < 5; i++ {
		if rows[i].Macro == nil || *rows[i].Macro != 42 {
			t.Fatalf("day %d expected 42", i+1)
		}
	}
}

func TestMergeUsesGreatestEarlierObservation(t *testing.T) {
	bars := dailyBars(1, 10)
	macro := models.NewSeries("m", []models.MacroPoint{
		{Time: d(8), Value: 3},
		{Time: d(2), Value: 1},
		{Time: d(5).Add(12 * time.Hour), Value: 2},
	})
	rows := Merge(bars, macro)

	want := []float64{0, 1, 1, 1, 1, 2, 2, 3, 3, 3}
	for i, r := range rows {
		if i == 0 {
			if r.Macro != nil {
				t.Fatalf("first row should be empty")
			}
			continue
		}
		if r.Macro == nil || *r.Macro != want[i] {
			t.Fatalf("row %d: got %v want %v", i, r.Macro, want[i])
		}
	}
}

func TestMergeDuplicateMacroTimestampsLastWins(t *testing.T) {
	macro := models.Series{ID: "m", Points: []models.MacroPoint{
		{Time: d(1), Value: 10},
		{Time: d(1), Value: 11},
	}}
	rows := Merge(dailyBars(1, 2), macro)
	if *rows[0].Macro != 11 || *rows[1].Macro != 11 {
		t.Fatalf("expected last duplicate to win, got %v %v", *rows[0].Macro, *rows[1].Macro)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	bars := dailyBars(1, 3)
	rows := Merge(bars, models.Series{})
	if len(rows) != 3 || rows[0].Macro != nil {
		t.Fatalf("empty macro should return bars unchanged")
	}
	if rows := Merge(nil, models.NewSeries("m", []models.MacroPoint{{Time: d(1), Value: 1}})); len(rows) != 0 {
		t.Fatalf("empty bars should yield no rows")
	}
}

func TestMergeSortsUnorderedBars(t *testing.T) {
	bars := []models.PriceBar{{Time: d(3)}, {Time: d(1)}, {Time: d(2)}}
	macro := models.NewSeries("m", []models.MacroPoint{{Time: d(2), Value: 7}})
	rows := Merge(bars, macro)
	if !rows[0].Time.Equal(d(1)) || rows[0].Macro != nil || *rows[2].Macro != 7 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestMergeKeepsOneRowPerBar(t *testing.T) {
	bars := []models.PriceBar{{Time: d(2), Close: 1}, {Time: d(1)}, {Time: d(2), Close: 2}}
	macro := models.NewSeries("m", []models.MacroPoint{{Time: d(1), Value: 5}})
	rows := Merge(bars, macro)
	if len(rows) != len(bars) {
		t.Fatalf("expected %d rows, got %d", len(bars), len(rows))
	}
	if rows[1].Close != 1 || rows[2].Close != 2 || *rows[2].Macro != 5 {
		t.Fatalf("duplicate bars reordered or dropped: %+v", rows)
	}
}

func TestTableSetsColumnOnlyWithOverlay(t *testing.T) {
	tb := Table("BTC/USDT", "1d", "binance", dailyBars(1, 2), models.Series{}, "global_m2")
	if tb.MacroColumn != "" || tb.Len() != 2 {
		t.Fatalf("unexpected table %+v", tb)
	}
}
