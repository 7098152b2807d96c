package models

import (
	"sort"
	"time"
)

// MacroPoint is a single observation of a macro series.
type MacroPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is a named, time-ordered sequence of points. Macro series and FX
// quote series share this shape; FX quoting direction is never stored here.
type Series struct {
	ID     string       `json:"id"`
	Points []MacroPoint `json:"points"`
}

// NewSeries builds a series and normalizes its ordering.
func NewSeries(id string, points []MacroPoint) Series {
	return Series{ID: id, Points: SortPoints(points)}
}

func (s Series) Len() int { return len(s.Points) }

func (s Series) Empty() bool { return len(s.Points) == 0 }

// Last returns the latest point.
func (s Series) Last() (MacroPoint, bool) {
	if len(s.Points) == 0 {
		return MacroPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Scale returns a new series with every value multiplied by factor.
func (s Series) Scale(factor float64) Series {
	out := make([]MacroPoint, len(s.Points))
	for i, p := range s.Points {
		out[i] = MacroPoint{Time: p.Time, Value: p.Value * factor}
	}
	return Series{ID: s.ID, Points: out}
}

// SortPoints returns a stably sorted copy; for duplicate timestamps the last
// value in input order wins.
func SortPoints(points []MacroPoint) []MacroPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]MacroPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for i, p := range out {
		if i > 0 && p.Time.Equal(dedup[len(dedup)-1].Time) {
			dedup[len(dedup)-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}
