package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sgahlot/signalctx/internal/util"
)

// DefaultTimestampFields are the field paths read for the record time, in order.
var DefaultTimestampFields = [][]string{
	{"_timestamp"},
	{"timestamp"},
	{"@timestamp"},
	{"time"},
	{"ts"},
	{"observedTimestamp"},
	{"observed_timestamp"},
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123Z,
	time.RFC1123,
}

// findTimestamp returns the first parseable timestamp among paths.
func findTimestamp(fields map[string]interface{}, paths [][]string) (time.Time, bool) {
	for _, p := range paths {
		v, ok := util.SafeNestedValue(fields, p...)
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(v); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// parseTimestamp accepts RFC3339 strings with any fractional precision and
// numeric epochs in seconds, milliseconds, microseconds or nanoseconds.
func parseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpochInt(n)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpochFloat(f)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromEpochInt(n)
		}
		if f, err := t.Float64(); err == nil {
			return fromEpochFloat(f)
		}
	case float64:
		return fromEpochFloat(t)
	case int64:
		return fromEpochInt(t)
	case int:
		return fromEpochInt(int64(t))
	}
	return time.Time{}, false
}

// Epoch magnitudes separating s, ms, µs and ns for any date after 1973.
const (
	maxEpochSeconds = 1e11
	maxEpochMillis  = 1e14
	maxEpochMicros  = 1e17
)

func fromEpochInt(n int64) (time.Time, bool) {
	switch {
	case n <= 0:
		return time.Time{}, false
	case n < maxEpochSeconds:
		return time.Unix(n, 0).UTC(), true
	case n < maxEpochMillis:
		return time.UnixMilli(n).UTC(), true
	case n < maxEpochMicros:
		return time.UnixMicro(n).UTC(), true
	default:
		return time.Unix(0, n).UTC(), true
	}
}

func fromEpochFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f >= maxEpochSeconds {
		if f > math.MaxInt64 {
			return time.Time{}, false
		}
		return fromEpochInt(int64(f))
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
