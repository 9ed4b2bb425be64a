package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes seen across the feeds into a UTC
// instant. Returns false for blank or unrecognized input.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FromEpochMillis converts milliseconds since the Unix epoch to a UTC instant.
func FromEpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || ms >= float64(math.MaxInt64) || ms < float64(math.MinInt64) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// HoursDuration converts fractional hours to a Duration, saturating at the
// largest Duration instead of wrapping.
func HoursDuration(hours float64) time.Duration {
	d := hours * float64(time.Hour)
	switch {
	case math.IsNaN(d):
		return 0
	case d >= float64(math.MaxInt64):
		return time.Duration(math.MaxInt64)
	case d <= float64(math.MinInt64):
		return time.Duration(math.MinInt64)
	}
	return time.Duration(d)
}

// combineDateHHMM joins a YYYY-MM-DD date with an HHMM time of day
// (e.g. "2024-04-26" + "930" -> 09:30 UTC). A bad time keeps midnight.
func combineDateHHMM(date, hhmm string) (time.Time, bool) {
	base, ok := ParseTimestamp(date)
	if !ok {
		return time.Time{}, false
	}

	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) < 3 || len(hhmm) > 4 {
		return base, true
	}
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}

	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return base, true
	}

	return time.Date(base.Year(), base.Month(), base.Day(), hour, mins, 0, 0, time.UTC), true
}
