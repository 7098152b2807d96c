package fx

import (
	"sort"
	"time"

	"MacroPull/internal/domain/models"
)

// DefaultTolerance bounds how far a quote may be from a native timestamp.
// Monthly prints are dated on the 1st, which often has no FX session.
const DefaultTolerance = 7 * 24 * time.Hour

// Normalize converts native values into USD using rates. The rate used for
// each native point is the nearest quote within tolerance; ties go to the
// earlier quote. Points without a usable quote are dropped, never filled.
// The input series are not modified.
func Normalize(native, rates models.Series, op models.FXOperation, tolerance time.Duration) models.Series {
	if op == models.FXNone {
		out := make([]models.MacroPoint, len(native.Points))
		copy(out, native.Points)
		return models.Series{ID: native.ID, Points: out}
	}
	if native.Empty() || rates.Empty() {
		return models.Series{ID: native.ID}
	}

	quotes := models.SortPoints(rates.Points)
	out := make([]models.MacroPoint, 0, len(native.Points))
	for _, p := range native.Points {
		rate, ok := Nearest(quotes, p.Time, tolerance)
		if !ok {
			continue
		}
		v, ok := op.Apply(p.Value, rate)
		if !ok {
			continue
		}
		out = append(out, models.MacroPoint{Time: p.Time, Value: v})
	}
	return models.Series{ID: native.ID, Points: out}
}

// Nearest returns the value of the quote closest to t, provided it lies
// within tolerance. quotes must be sorted ascending.
func Nearest(quotes []models.MacroPoint, t time.Time, tolerance time.Duration) (float64, bool) {
	if len(quotes) == 0 {
		return 0, false
	}
	i := sort.Search(len(quotes), func(i int) bool { return !quotes[i].Time.Before(t) })

	best := -1
	var bestDist time.Duration
	if i > 0 {
		best = i - 1
		bestDist = t.Sub(quotes[i-1].Time)
	}
	if i < len(quotes) {
		d := quotes[i].Time.Sub(t)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 || bestDist > tolerance {
		return 0, false
	}
	return quotes[best].Value, true
}
