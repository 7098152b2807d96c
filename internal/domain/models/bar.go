package models

import (
	"sort"
	"time"
)

// PriceBar is one OHLCV observation. Time is always UTC.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// SortBars returns a copy of bars ordered by time with duplicate timestamps
// collapsed to the last occurrence.
func SortBars(bars []PriceBar) []PriceBar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for i, b := range out {
		if i > 0 && b.Time.Equal(dedup[len(dedup)-1].Time) {
			dedup[len(dedup)-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// TrimBars keeps the most recent limit bars. limit <= 0 keeps everything.
func TrimBars(bars []PriceBar, limit int) []PriceBar {
	if limit <= 0 || len(bars) <= limit {
		return bars
	}
	return bars[len(bars)-limit:]
}

// BarsUntil drops bars strictly after cutoff. A zero cutoff keeps everything.
func BarsUntil(bars []PriceBar, cutoff time.Time) []PriceBar {
	if cutoff.IsZero() {
		return bars
	}
	out := make([]PriceBar, 0, len(bars))
	for _, b := range bars {
		if !b.Time.After(cutoff) {
			out = append(out, b)
		}
	}
	return out
}
