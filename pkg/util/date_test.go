package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeOffsetBecomesUTC(t *testing.T) {
	got, ok := ParseTime("2024-10-10T12:10:10+02:00")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Location() != time.UTC || got.Hour() != 10 {
		t.Fatalf("expected 10:10 UTC, got %v", got)
	}
}

func TestParseTimePlainDate(t *testing.T) {
	got, ok := ParseTime("2020-01-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestNaiveUTC(t *testing.T) {
	loc := time.FixedZone("X", 9*3600)
	in := time.Date(2024, 1, 2, 9, 0, 0, 0, loc)
	got := NaiveUTC(in)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if !got.Equal(in) || got.Hour() != 0 {
		t.Fatalf("unexpected conversion %v", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); got != "2024-03-01" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatDate(time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)); got != "2024-03-01T04:00:00Z" {
		t.Fatalf("unexpected %s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected %v", got)
	}
}
