package util

import (
	"strconv"
	"time"
)

// NaiveUTC converts t to UTC. Every timestamp entering the system goes
// through here so series from different providers compare directly.
func NaiveUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// UnixUTC converts unix seconds to a UTC time.
func UnixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// UnixMilliUTC converts unix milliseconds to a UTC time.
func UnixMilliUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseTime tries RFC3339, RFC3339Nano, plain dates and unix seconds.
// Returns (t, true) if any worked. Results are UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NaiveUTC(t), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return UnixUTC(ts), true
	}
	return time.Time{}, false
}

// FormatDate renders t as a plain date when it falls on midnight, RFC3339 otherwise.
func FormatDate(t time.Time) string {
	t = NaiveUTC(t)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
