package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// insertChunks writes rows with multi-row VALUES statements of at most
// chunk rows each.
func insertChunks(ctx context.Context, db execer, prefix string, cols []string, rows [][]interface{}, chunk int) error {
	if len(rows) == 0 {
		return nil
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	head := fmt.Sprintf("%s (%s) VALUES ", prefix, strings.Join(cols, ", "))

	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(cols))
		for _, r := range rows[start:end] {
			values = append(values, tuple)
			args = append(args, r...)
		}
		if _, err := db.ExecContext(ctx, head+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

var tableColumns = []string{
	"instrument", "timeframe", "source", "ts",
	"open", "high", "low", "close", "volume",
	"macro_column", "macro", "generated_at",
}

var seriesColumns = []string{"series_id", "ts", "value", "updated_at"}

// tableRows flattens t into tableColumns order. ts converts a time into the
// driver's representation.
func tableRows(t *models.Table, ts func(time.Time) interface{}) [][]interface{} {
	rows := make([][]interface{}, 0, t.Len())
	for _, r := range t.Rows {
		var macro interface{}
		if r.Macro != nil {
			macro = *r.Macro
		}
		rows = append(rows, []interface{}{
			t.Instrument, t.Timeframe, t.Source, ts(r.Time),
			r.Open, r.High, r.Low, r.Close, r.Volume,
			t.MacroColumn, macro, ts(t.GeneratedAt),
		})
	}
	return rows
}

func seriesRows(s models.Series, updated time.Time, ts func(time.Time) interface{}) [][]interface{} {
	rows := make([][]interface{}, 0, s.Len())
	for _, p := range s.Points {
		rows = append(rows, []interface{}{s.ID, ts(p.Time), p.Value, ts(updated)})
	}
	return rows
}
