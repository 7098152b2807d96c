package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	pkgch "MacroPull/pkg/clickhouse"
	xlogger "MacroPull/pkg/logger"
)

// ClickHouseSchema returns the DDL for the archive tables. Both tables are
// ReplacingMergeTree so republishing a bar or point keeps the newest copy.
func ClickHouseSchema(database string, tables pkgch.Tables) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			instrument   LowCardinality(String),
			timeframe    LowCardinality(String),
			source       LowCardinality(String),
			ts           DateTime64(3, 'UTC'),
			open         Float64,
			high         Float64,
			low          Float64,
			close        Float64,
			volume       Float64,
			macro_column LowCardinality(String),
			macro        Nullable(Float64),
			generated_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(generated_at)
		ORDER BY (instrument, timeframe, ts)`, database, tables.Rows),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			series_id  LowCardinality(String),
			ts         DateTime64(3, 'UTC'),
			value      Float64,
			updated_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (series_id, ts)`, database, tables.Series),
	}
}

// ClickHouseArchive implements SeriesArchive on ClickHouse.
type ClickHouseArchive struct {
	db           *sql.DB
	client       *pkgch.Client
	rowsInsert   string
	seriesInsert string
	batch        int
	logger       *xlogger.Logger
	now          domrepo.Clock
}

// NewClickHouseArchive creates the archive and ensures its schema.
func NewClickHouseArchive(ctx context.Context, ch *pkgch.Client, logger *xlogger.Logger) (*ClickHouseArchive, error) {
	if logger == nil {
		logger = xlogger.Nop()
	}
	tables := ch.Tables()
	if err := ch.InitSchema(ctx, ClickHouseSchema(ch.Database(), tables)); err != nil {
		return nil, err
	}
	return &ClickHouseArchive{
		db:           ch.DB(),
		client:       ch,
		rowsInsert:   insertInto(ch.Database(), tables.Rows),
		seriesInsert: insertInto(ch.Database(), tables.Series),
		batch:        ch.BatchSize(),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func insertInto(database, table string) string {
	return fmt.Sprintf("INSERT INTO %s.%s", database, table)
}

func chTime(t time.Time) interface{} { return t.UTC() }

func (a *ClickHouseArchive) StoreTable(ctx context.Context, t *models.Table) error {
	if t == nil || t.Len() == 0 {
		return nil
	}
	start := time.Now()
	if err := insertChunks(ctx, a.db, a.rowsInsert, tableColumns, tableRows(t, chTime), a.batch); err != nil {
		a.logger.Error("clickhouse store table failed",
			xlogger.String("instrument", t.Instrument),
			xlogger.Error(err),
		)
		return fmt.Errorf("store table %s: %w", t.Instrument, err)
	}
	a.logger.Debug("clickhouse table stored",
		xlogger.String("instrument", t.Instrument),
		xlogger.Int("rows", t.Len()),
		xlogger.Duration("took_ms", time.Since(start)),
	)
	return nil
}

func (a *ClickHouseArchive) StoreSeries(ctx context.Context, s models.Series) error {
	if s.Empty() {
		return nil
	}
	if err := insertChunks(ctx, a.db, a.seriesInsert, seriesColumns, seriesRows(s, a.now(), chTime), a.batch); err != nil {
		return fmt.Errorf("store series %s: %w", s.ID, err)
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return a.client.Close()
}
