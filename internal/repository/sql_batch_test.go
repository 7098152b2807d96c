package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

type recordExec struct {
	queries []string
	args    [][]interface{}
}

func (r *recordExec) ExecContext(_ context.Context, q string, args ...interface{}) (sql.Result, error) {
	r.queries = append(r.queries, q)
	r.args = append(r.args, args)
	return nil, nil
}

func TestInsertChunks(t *testing.T) {
	rows := make([][]interface{}, 5)
	for i := range rows {
		rows[i] = []interface{}{i, "x"}
	}
	rec := &recordExec{}
	if err := insertChunks(context.Background(), rec, "INSERT INTO t", []string{"a", "b"}, rows, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.queries) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(rec.queries))
	}
	if rec.queries[0] != "INSERT INTO t (a, b) VALUES (?, ?),(?, ?)" {
		t.Fatalf("unexpected statement %q", rec.queries[0])
	}
	if strings.Count(rec.queries[2], "(?, ?)") != 1 || len(rec.args[2]) != 2 {
		t.Fatalf("unexpected last chunk %q %v", rec.queries[2], rec.args[2])
	}
}

func TestTableRowsNullMacro(t *testing.T) {
	rows := tableRows(sampleTable(), sqliteTime)
	if len(rows) != 2 || len(rows[0]) != len(tableColumns) {
		t.Fatalf("unexpected shape %v", rows)
	}
	if rows[0][10] != nil || rows[1][10] != 21000.0 {
		t.Fatalf("unexpected macro values %v / %v", rows[0][10], rows[1][10])
	}
}
