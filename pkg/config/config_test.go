package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Cache.MacroWindow != 7*24*time.Hour {
		t.Fatalf("macro window = %v", c.Cache.MacroWindow)
	}
	if c.Aggregate.Sentinel != "Global M2" || c.Aggregate.CacheKey != "global_m2_agg" || c.Aggregate.Sources[1] != "fred" {
		t.Fatalf("unexpected aggregate defaults %+v", c.Aggregate)
	}
	if len(c.Sources.Order) != 3 || c.Sources.Order[0] != "tv" {
		t.Fatalf("unexpected source order %v", c.Sources.Order)
	}
	if c.Sources.Binance.MaxBars != 20000 || c.Sources.Binance.PageSize != 1000 {
		t.Fatalf("unexpected binance defaults %+v", c.Sources.Binance)
	}
	if !c.Sources.TradingView.Enabled {
		t.Fatalf("tradingview should default to enabled")
	}
	if ch := c.ClickHouse; ch.RowsTable != "aligned_rows" || ch.SeriesTable != "macro_series" || ch.BatchSize != 2000 {
		t.Fatalf("unexpected clickhouse archive defaults %+v", ch)
	}
}

func TestParseRejectsCollidingClickHouseTables(t *testing.T) {
	doc := "clickhouse:\n  rows_table: t\n  series_table: t\n"
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatalf("expected error when both archive tables share a name")
	}
	if _, err := Parse([]byte("clickhouse:\n  batch_size: -1\n")); err == nil {
		t.Fatalf("expected error for negative batch size")
	}
}

func TestParseKeepsExplicitFalse(t *testing.T) {
	c, err := Parse([]byte("environment: test\nsources:\n  tradingview:\n    enabled: false\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Sources.TradingView.Enabled {
		t.Fatalf("explicit false was overwritten by default")
	}
}

func TestParseComponentsRequireDeclarations(t *testing.T) {
	head := "environment: test\naggregate:\n  components:\n"
	good := head +
		"    - {country: US, series: M2SL, op: none, unit_scale: 1e9}\n" +
		"    - {country: EU, series: MYAGM2EZM196N, fx: EURUSD=X, op: multiply, unit_scale: 1}\n"
	c, err := Parse([]byte(good))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Aggregate.Components[0].UnitScale != 1e9 || c.Aggregate.Components[1].Operation != "multiply" {
		t.Fatalf("components not decoded: %+v", c.Aggregate.Components)
	}

	cases := map[string]string{
		"missing op":         "    - {country: JP, series: JPM2, fx: JPY=X, unit_scale: 1}\n",
		"missing unit_scale": "    - {country: JP, series: JPM2, fx: JPY=X, op: divide}\n",
		"unknown op":         "    - {country: XX, series: FOO, op: square, unit_scale: 1}\n",
		"fx with none":       "    - {country: JP, series: JPM2, fx: JPY=X, op: none, unit_scale: 1}\n",
		"op without fx":      "    - {country: JP, series: JPM2, op: divide, unit_scale: 1}\n",
	}
	for name, line := range cases {
		if _, err := Parse([]byte(head + line)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []string{
		"environment: test\ncache:\n  backend: s3\n",
		"environment: test\nsources:\n  order: [tv, carrier-pigeon]\n",
		"environment: test\nscheduler:\n  watches:\n    - instrument: BTC/USDT\n      timeframe: 2d\n",
		"environment: test\npublisher:\n  type: kafka\n",
	}
	for _, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("environment: test\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FRED_API_KEY", "secret")
	t.Setenv("DATA_DIR", "/tmp/macro")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("PUBLISHER", "kafka")
	t.Setenv("OPS_PORT", "9191")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Macro.FredAPIKey != "secret" || c.Cache.Dir != "/tmp/macro" {
		t.Fatalf("env not applied: %+v", c.Macro)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Server.Port != 9191 {
		t.Fatalf("port = %d", c.Server.Port)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Aggregate.Components) != 8 || len(c.Aggregate.TV.Components) != 8 {
		t.Fatalf("components = %d fred, %d tradingview", len(c.Aggregate.Components), len(c.Aggregate.TV.Components))
	}
	if len(c.Aggregate.Sources) != 2 || c.Aggregate.Sources[0] != "tradingview" {
		t.Fatalf("aggregate sources = %v", c.Aggregate.Sources)
	}
	if len(c.Scheduler.Watches) != 3 || c.Scheduler.Watches[0].Overlay != "Global M2" {
		t.Fatalf("unexpected watches %+v", c.Scheduler.Watches)
	}
	if c.Scheduler.Watches[0].Source != "auto" {
		t.Fatalf("watch source default = %q", c.Scheduler.Watches[0].Source)
	}
}
