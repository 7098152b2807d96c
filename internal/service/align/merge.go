package align

import (
	"slices"

	"MacroPull/internal/domain/models"
)

// Merge attaches to every bar the latest macro value observed at or before
// the bar's time. The result has exactly one row per input bar, in time
// order; bars sharing a timestamp keep their input order. When either side
// is empty the bars come back with no macro values.
func Merge(bars []models.PriceBar, macro models.Series) []models.Row {
	rows := make([]models.Row, len(bars))
	for i, b := range bars {
		rows[i] = models.Row{PriceBar: b}
	}
	slices.SortStableFunc(rows, func(a, b models.Row) int {
		return a.Time.Compare(b.Time)
	})
	if len(rows) == 0 || macro.Empty() {
		return rows
	}

	points := models.SortPoints(macro.Points)
	j := -1
	for i := range rows {
		for j+1 < len(points) && !points[j+1].Time.After(rows[i].Time) {
			j++
		}
		if j >= 0 {
			v := points[j].Value
			rows[i].Macro = &v
		}
	}
	return rows
}

// Table builds a unified table for instrument from bars and an optional overlay.
func Table(instrument, timeframe, source string, bars []models.PriceBar, macro models.Series, column string) *models.Table {
	t := &models.Table{
		Instrument: instrument,
		Timeframe:  timeframe,
		Source:     source,
		Rows:       Merge(bars, macro),
	}
	if !macro.Empty() {
		t.MacroColumn = column
	}
	return t
}
