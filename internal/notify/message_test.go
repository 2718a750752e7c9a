package notify

import (
	"strings"
	"testing"
	"time"

	"riftbot/internal/rift"
)

func TestReminderIsDeterministic(t *testing.T) {
	t.Parallel()
	event, err := rift.Parse("2025-08-01 20:00")
	if err != nil {
		t.Fatal(err)
	}
	first := Reminder(event, 30*time.Minute)
	for i := 0; i < 10; i++ {
		if got := Reminder(event, 30*time.Minute); got != first {
			t.Fatalf("rendering changed between calls:\n%s\nvs\n%s", first, got)
		}
	}
}

func TestReminderContent(t *testing.T) {
	t.Parallel()
	event, err := rift.Parse("2025-08-01 20:00")
	if err != nil {
		t.Fatal(err)
	}
	msg := Reminder(event, 15*time.Minute)
	if !strings.Contains(msg, "15 minutes") {
		t.Fatalf("missing minutes in message:\n%s", msg)
	}
	if !strings.Contains(msg, "2025-08-01 20:00 UTC") {
		t.Fatalf("missing event time in message:\n%s", msg)
	}
}

func TestVariantIndexIgnoresSubMinutePrecision(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	jittered := base.Add(17 * time.Second)
	if VariantIndex(base, time.Hour) != VariantIndex(jittered, time.Hour) {
		t.Fatal("variant changed for sub-minute jitter")
	}
}

func TestVariantIndexInRange(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	for day := 0; day < 30; day++ {
		for _, lead := range []time.Duration{60, 30, 15, 5} {
			idx := VariantIndex(base.AddDate(0, 0, day), lead*time.Minute)
			if idx < 0 || idx >= len(templates) {
				t.Fatalf("variant index %d out of range", idx)
			}
		}
	}
}

func TestScheduleUpdated(t *testing.T) {
	t.Parallel()
	msg := ScheduleUpdated(3, 20)
	if !strings.Contains(msg, "3") || !strings.Contains(msg, "20") {
		t.Fatalf("counts missing from announcement:\n%s", msg)
	}
}
