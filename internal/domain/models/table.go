package models

import "time"

// Row is a price bar joined with the macro value in effect at its time.
// Macro is nil when no observation precedes the bar.
type Row struct {
	PriceBar
	Macro *float64 `json:"macro,omitempty"`
}

// Table is the unified output handed to consumers.
type Table struct {
	Instrument  string    `json:"instrument"`
	Timeframe   string    `json:"timeframe"`
	Source      string    `json:"source"`
	MacroColumn string    `json:"macro_column,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Rows        []Row     `json:"rows"`
}

func (t *Table) Len() int { return len(t.Rows) }

// Bars returns the price part of every row.
func (t *Table) Bars() []PriceBar {
	out := make([]PriceBar, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.PriceBar
	}
	return out
}
