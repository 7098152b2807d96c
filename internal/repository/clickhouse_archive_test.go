package repository

import (
	"strings"
	"testing"

	pkgch "MacroPull/pkg/clickhouse"
)

func TestClickHouseSchemaUsesConfiguredTables(t *testing.T) {
	stmts := ClickHouseSchema("macro", pkgch.Tables{Rows: "rows_v2", Series: "series_v2"})
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[1], "macro.rows_v2 (") || !strings.Contains(stmts[2], "macro.series_v2 (") {
		t.Fatalf("configured tables not used:\n%s\n%s", stmts[1], stmts[2])
	}
	for _, s := range stmts {
		if strings.Contains(s, "aligned_rows") || strings.Contains(s, "macro_series") {
			t.Fatalf("default table name leaked into %s", s)
		}
	}
}

func TestInsertIntoQualifiesTable(t *testing.T) {
	if got := insertInto("macro", "rows_v2"); got != "INSERT INTO macro.rows_v2" {
		t.Fatalf("unexpected prefix %q", got)
	}
}
