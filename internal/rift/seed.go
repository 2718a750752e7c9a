package rift

import "time"

// seedTimes is the built-in schedule used when no persisted state exists
// (or it cannot be read). Times are UTC.
var seedTimes = []string{
	"2025-07-30 08:00",
	"2025-08-01 20:00", "2025-08-03 08:00", "2025-08-05 20:00", "2025-08-07 08:00",
	"2025-08-09 20:00", "2025-08-11 08:00", "2025-08-13 20:00", "2025-08-15 08:00",
	"2025-08-17 20:00", "2025-08-19 08:00", "2025-08-21 20:00", "2025-08-23 08:00",
	"2025-08-25 20:00", "2025-08-27 08:00", "2025-08-29 20:00", "2025-08-31 08:00",
}

// Seed returns the default event list.
func Seed() []time.Time {
	out := make([]time.Time, 0, len(seedTimes))
	for _, s := range seedTimes {
		t, err := Parse(s)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}
