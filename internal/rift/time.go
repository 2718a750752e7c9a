package rift

import (
	"fmt"
	"time"
)

// TimeLayout is the wire format for rift instants: UTC, minute resolution,
// no offset marker. It is shared by the persisted schedule file and the
// calendar import path.
const TimeLayout = "2006-01-02 15:04"

// Parse parses a "YYYY-MM-DD HH:MM" string as a UTC instant.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("rift: invalid time %q: %w", s, err)
	}
	return t, nil
}

// Format renders an instant in the wire format (after normalization).
func Format(t time.Time) string {
	return Normalize(t).Format(TimeLayout)
}

// Normalize converts an instant to UTC and truncates it to minute
// resolution. Two events are the same event iff their normalized
// instants are equal.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
