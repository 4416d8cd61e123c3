// ABOUTME: Time helpers for the vault's canonical timestamp format and period cutoffs
// ABOUTME: Normalizes captured timestamps to UTC ISO-8601 so lexical order matches time order

package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical stored timestamp format. Every stored timestamp
// uses it so string comparison orders records chronologically.
const Layout = "2006-01-02T15:04:05.000Z"

// inputLayouts are the formats NormalizeTimestamp accepts.
var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Format renders t in the canonical layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Now returns the current time in the canonical layout.
func Now() string {
	return Format(time.Now())
}

// Parse reads a timestamp in any accepted layout.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// NormalizeTimestamp rewrites s into the canonical layout.
// Values that cannot be parsed are returned trimmed but otherwise unchanged.
func NormalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	t, err := Parse(s)
	if err != nil {
		return s
	}
	return Format(t)
}

// StartOfToday returns midnight (00:00:00) of the current day in local time
func StartOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// StartOfYesterday returns midnight (00:00:00) of yesterday in local time
func StartOfYesterday() time.Time {
	return StartOfToday().AddDate(0, 0, -1)
}

// StartOfWeek returns midnight of the most recent Sunday in local time
func StartOfWeek() time.Time {
	today := StartOfToday()
	return today.AddDate(0, 0, -int(today.Weekday()))
}

// StartOfMonth returns midnight of the first day of the current month in local time
func StartOfMonth() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// ParsePeriod converts a period name to its cutoff.
// Supported values: "today", "yesterday", "week", "month"
func ParsePeriod(period string) (time.Time, bool) {
	switch period {
	case "today":
		return StartOfToday(), true
	case "yesterday":
		return StartOfYesterday(), true
	case "week":
		return StartOfWeek(), true
	case "month":
		return StartOfMonth(), true
	default:
		return time.Time{}, false
	}
}

// ParseSince resolves a --since style argument: either a period name,
// a Go duration ("36h") counted back from now, or a timestamp.
// The result is in the canonical layout.
func ParseSince(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, ok := ParsePeriod(s); ok {
		return Format(t), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return Format(time.Now().Add(-d)), nil
	}
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}
