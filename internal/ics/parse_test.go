package ics

import (
	"strings"
	"testing"

	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

func calendar(events ...string) []byte {
	var sb strings.Builder
	sb.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//riftbot test//EN\r\n")
	for _, e := range events {
		sb.WriteString(e)
	}
	sb.WriteString("END:VCALENDAR\r\n")
	return []byte(sb.String())
}

func vevent(uid, dtstart string) string {
	var sb strings.Builder
	sb.WriteString("BEGIN:VEVENT\r\nUID:" + uid + "\r\n")
	if dtstart != "" {
		sb.WriteString("DTSTART:" + dtstart + "\r\n")
	}
	sb.WriteString("SUMMARY:Rift\r\nEND:VEVENT\r\n")
	return sb.String()
}

func TestParseStartTimes(t *testing.T) {
	t.Parallel()
	body := calendar(
		vevent("a@test", "20250801T200000Z"),
		vevent("b@test", "20250803T080000Z"),
	)
	got, err := ParseStartTimes(body, logx.Nop())
	if err != nil {
		t.Fatalf("ParseStartTimes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d events, want 2", len(got))
	}
	if rift.Format(got[0]) != "2025-08-01 20:00" {
		t.Fatalf("first start = %s", rift.Format(got[0]))
	}
	if rift.Format(got[1]) != "2025-08-03 08:00" {
		t.Fatalf("second start = %s", rift.Format(got[1]))
	}
}

func TestParseSkipsEventsWithoutStart(t *testing.T) {
	t.Parallel()
	body := calendar(
		vevent("a@test", ""),
		vevent("b@test", "20250803T080000Z"),
	)
	got, err := ParseStartTimes(body, logx.Nop())
	if err != nil {
		t.Fatalf("ParseStartTimes: %v", err)
	}
	if len(got) != 1 || rift.Format(got[0]) != "2025-08-03 08:00" {
		t.Fatalf("parsed = %v, want the single valid event", got)
	}
}

func TestParseEmptyPayload(t *testing.T) {
	t.Parallel()
	if _, err := ParseStartTimes(nil, logx.Nop()); err == nil {
		t.Fatal("empty payload accepted")
	}
}

func TestParseGarbage(t *testing.T) {
	t.Parallel()
	if _, err := ParseStartTimes([]byte("this is not a calendar"), logx.Nop()); err == nil {
		t.Fatal("garbage payload accepted")
	}
}

func TestParseNormalizesSeconds(t *testing.T) {
	t.Parallel()
	body := calendar(vevent("a@test", "20250801T200045Z"))
	got, err := ParseStartTimes(body, logx.Nop())
	if err != nil {
		t.Fatalf("ParseStartTimes: %v", err)
	}
	if len(got) != 1 || rift.Format(got[0]) != "2025-08-01 20:00" {
		t.Fatalf("parsed = %v, want second precision dropped", got)
	}
}
