// Package ics extracts candidate rift instants from uploaded calendar
// files. The rest of the system treats it as an opaque producer of
// merge candidates.
package ics

import (
	"bytes"
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

// ParseStartTimes parses an ICS payload and returns the normalized UTC
// start instant of every discrete VEVENT. Events that cannot yield a start
// time are logged and skipped; the rest of the file is still used.
func ParseStartTimes(body []byte, log logx.Logger) ([]time.Time, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty payload")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []time.Time
	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		if err != nil || start.IsZero() {
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			log.Warn("skipping VEVENT without usable DTSTART", logx.String("uid", uid), logx.Err(err))
			continue
		}
		out = append(out, rift.Normalize(start))
	}
	return out, nil
}
