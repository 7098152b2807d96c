package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	xlogger "MacroPull/pkg/logger"
)

const sqliteChunkSize = 500

// SQLiteArchive implements SeriesArchive in a single SQLite file. Times are
// stored as unix milliseconds.
type SQLiteArchive struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *xlogger.Logger
	now    domrepo.Clock
}

// NewSQLiteArchive opens (or creates) the database and runs migrations.
func NewSQLiteArchive(path string, logger *xlogger.Logger) (*SQLiteArchive, error) {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	a := &SQLiteArchive{db: db, logger: logger, now: time.Now}
	if err := a.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("sqlite archive opened", xlogger.String("path", path))
	return a, nil
}

func (a *SQLiteArchive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aligned_rows (
			instrument   TEXT NOT NULL,
			timeframe    TEXT NOT NULL,
			source       TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			open         REAL,
			high         REAL,
			low          REAL,
			close        REAL,
			volume       REAL,
			macro_column TEXT,
			macro        REAL,
			generated_at INTEGER NOT NULL,
			PRIMARY KEY (instrument, timeframe, ts)
		)`,
		`CREATE TABLE IF NOT EXISTS macro_series (
			series_id  TEXT NOT NULL,
			ts         INTEGER NOT NULL,
			value      REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (series_id, ts)
		)`,
	}
	for _, s := range stmts {
		if _, err := a.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func sqliteTime(t time.Time) interface{} { return t.UnixMilli() }

func (a *SQLiteArchive) StoreTable(ctx context.Context, t *models.Table) error {
	if t == nil || t.Len() == 0 {
		return nil
	}
	return a.inTx(ctx, func(tx *sql.Tx) error {
		return insertChunks(ctx, tx, "INSERT OR REPLACE INTO aligned_rows", tableColumns, tableRows(t, sqliteTime), sqliteChunkSize)
	})
}

func (a *SQLiteArchive) StoreSeries(ctx context.Context, s models.Series) error {
	if s.Empty() {
		return nil
	}
	return a.inTx(ctx, func(tx *sql.Tx) error {
		return insertChunks(ctx, tx, "INSERT OR REPLACE INTO macro_series", seriesColumns, seriesRows(s, a.now(), sqliteTime), sqliteChunkSize)
	})
}

// LoadSeries reads an archived series back in time order.
func (a *SQLiteArchive) LoadSeries(ctx context.Context, id string) (models.Series, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT ts, value FROM macro_series WHERE series_id = ? ORDER BY ts`, id)
	if err != nil {
		return models.Series{}, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var pts []models.MacroPoint
	for rows.Next() {
		var ms int64
		var v float64
		if err := rows.Scan(&ms, &v); err != nil {
			return models.Series{}, fmt.Errorf("scan series: %w", err)
		}
		pts = append(pts, models.MacroPoint{Time: time.UnixMilli(ms).UTC(), Value: v})
	}
	return models.NewSeries(id, pts), rows.Err()
}

// CountRows returns the archived row count for an instrument and timeframe.
func (a *SQLiteArchive) CountRows(ctx context.Context, instrument, timeframe string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM aligned_rows WHERE instrument = ? AND timeframe = ?`,
		instrument, timeframe,
	).Scan(&n)
	return n, err
}

func (a *SQLiteArchive) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		a.logger.Error("sqlite archive write failed", xlogger.Error(err))
		return err
	}
	return tx.Commit()
}

func (a *SQLiteArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
