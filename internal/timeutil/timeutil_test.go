// ABOUTME: Tests for time utility functions
// ABOUTME: Verifies canonical timestamp normalization and period cutoffs

package timeutil

import (
	"testing"
	"time"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already canonical", input: "2024-03-01T10:00:00.000Z", want: "2024-03-01T10:00:00.000Z"},
		{name: "no millis", input: "2024-03-01T10:00:00Z", want: "2024-03-01T10:00:00.000Z"},
		{name: "offset converted to UTC", input: "2024-03-01T12:30:00+02:00", want: "2024-03-01T10:30:00.000Z"},
		{name: "nanos truncated", input: "2024-03-01T10:00:00.123456789Z", want: "2024-03-01T10:00:00.123Z"},
		{name: "rfc1123", input: "Fri, 01 Mar 2024 10:00:00 GMT", want: "2024-03-01T10:00:00.000Z"},
		{name: "date only", input: "2024-03-01", want: "2024-03-01T00:00:00.000Z"},
		{name: "garbage kept", input: "  yesterday-ish ", want: "yesterday-ish"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTimestamp(tt.input); got != tt.want {
				t.Errorf("NormalizeTimestamp(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormat_SortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := Format(base)
	later := Format(base.Add(1500 * time.Millisecond))
	if !(earlier < later) {
		t.Errorf("expected %q < %q", earlier, later)
	}
}

func TestStartOfToday(t *testing.T) {
	result := StartOfToday()
	now := time.Now()

	if result.Year() != now.Year() || result.Month() != now.Month() || result.Day() != now.Day() {
		t.Errorf("StartOfToday() date mismatch: got %v, expected date %v", result, now)
	}

	if result.Hour() != 0 || result.Minute() != 0 || result.Second() != 0 {
		t.Errorf("StartOfToday() should be midnight, got %v", result)
	}
}

func TestStartOfWeek(t *testing.T) {
	if got := StartOfWeek().Weekday(); got != time.Sunday {
		t.Errorf("StartOfWeek() weekday = %v, expected Sunday", got)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, period := range []string{"today", "yesterday", "week", "month"} {
		if _, ok := ParsePeriod(period); !ok {
			t.Errorf("ParsePeriod(%q) not recognized", period)
		}
	}
	if _, ok := ParsePeriod("fortnight"); ok {
		t.Error("ParsePeriod(fortnight) should not be recognized")
	}
}

func TestParseSince(t *testing.T) {
	got, err := ParseSince("2024-03-01T10:00:00Z")
	if err != nil {
		t.Fatalf("ParseSince: %v", err)
	}
	if got != "2024-03-01T10:00:00.000Z" {
		t.Errorf("got %q", got)
	}

	got, err = ParseSince("24h")
	if err != nil {
		t.Fatalf("ParseSince duration: %v", err)
	}
	cutoff, err := time.Parse(Layout, got)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if d := time.Since(cutoff); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expected cutoff about 24h ago, got %v", d)
	}

	if got, err := ParseSince(""); err != nil || got != "" {
		t.Errorf("empty since: got %q, %v", got, err)
	}

	if _, err := ParseSince("not a time"); err == nil {
		t.Error("expected error for unparseable since")
	}
}
