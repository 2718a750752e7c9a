package rift

import (
	"errors"
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tt, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return tt
}

func TestParseFormatRoundtrip(t *testing.T) {
	t.Parallel()
	const raw = "2025-08-01 20:00"
	tt := mustParse(t, raw)
	if got := Format(tt); got != raw {
		t.Fatalf("Format = %q, want %q", got, raw)
	}
	if tt.Location() != time.UTC {
		t.Fatalf("parsed location = %v, want UTC", tt.Location())
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "2025-08-01", "01.08.2025 20:00", "2025-08-01T20:00:00Z"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}

func TestNormalizeTruncatesAndConverts(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("X", 2*3600)
	in := time.Date(2025, 8, 1, 22, 30, 45, 123, loc) // 20:30:45 UTC
	got := Normalize(in)
	want := time.Date(2025, 8, 1, 20, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()
	s := NewSchedule(nil)
	batch := []time.Time{
		mustParse(t, "2025-08-03 08:00"),
		mustParse(t, "2025-08-01 20:00"),
		mustParse(t, "2025-08-01 20:00"), // duplicate inside the batch
	}
	if added := s.Merge(batch); added != 2 {
		t.Fatalf("first Merge added = %d, want 2", added)
	}
	if added := s.Merge(batch); added != 0 {
		t.Fatalf("second Merge added = %d, want 0", added)
	}

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if !all[0].Before(all[1]) {
		t.Fatalf("schedule not sorted: %v", all)
	}
}

func TestMergeDeduplicatesWithinOneBatch(t *testing.T) {
	t.Parallel()
	s := NewSchedule([]time.Time{
		mustParse(t, "2025-08-01 10:00"),
		mustParse(t, "2025-08-01 12:00"),
	})
	dup := mustParse(t, "2025-08-01 09:00")
	if added := s.Merge([]time.Time{dup, dup}); added != 1 {
		t.Fatalf("Merge with repeated candidate added = %d, want 1", added)
	}

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(all), all)
	}
	for i := 1; i < len(all); i++ {
		if !all[i-1].Before(all[i]) {
			t.Fatalf("duplicate or unsorted instant in set: %v", all)
		}
	}
}

func TestMergeSubMinuteCandidatesCollapse(t *testing.T) {
	t.Parallel()
	// Two instants in the same minute normalize to one event.
	s := NewSchedule(nil)
	base := time.Date(2025, 8, 1, 9, 0, 5, 0, time.UTC)
	if added := s.Merge([]time.Time{base, base.Add(30 * time.Second)}); added != 1 {
		t.Fatalf("Merge of same-minute candidates added = %d, want 1", added)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestReplaceConflict(t *testing.T) {
	t.Parallel()
	a := mustParse(t, "2025-08-01 20:00")
	b := mustParse(t, "2025-08-03 08:00")
	s := NewSchedule([]time.Time{a, b})

	err := s.Replace(a, b)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Replace error = %v, want *ConflictError", err)
	}
	if !ce.At.Equal(b) {
		t.Fatalf("conflict At = %v, want %v", ce.At, b)
	}
	// Store unchanged.
	all := s.All()
	if len(all) != 2 || !all[0].Equal(a) || !all[1].Equal(b) {
		t.Fatalf("store changed after conflict: %v", all)
	}
}

func TestReplaceSameSlotIsAllowed(t *testing.T) {
	t.Parallel()
	a := mustParse(t, "2025-08-01 20:00")
	s := NewSchedule([]time.Time{a})
	if err := s.Replace(a, a); err != nil {
		t.Fatalf("Replace onto itself: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestReplaceKeepsOrder(t *testing.T) {
	t.Parallel()
	s := NewSchedule([]time.Time{
		mustParse(t, "2025-08-01 20:00"),
		mustParse(t, "2025-08-05 20:00"),
		mustParse(t, "2025-08-09 20:00"),
	})
	if err := s.Replace(mustParse(t, "2025-08-05 20:00"), mustParse(t, "2025-08-11 08:00")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	all := s.All()
	for i := 1; i < len(all); i++ {
		if !all[i-1].Before(all[i]) {
			t.Fatalf("schedule out of order after replace: %v", all)
		}
	}
	if s.Contains(mustParse(t, "2025-08-05 20:00")) {
		t.Fatal("old instant still present after replace")
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()
	s := NewSchedule([]time.Time{
		mustParse(t, "2025-08-01 20:00"),
		mustParse(t, "2025-08-03 08:00"),
		mustParse(t, "2025-08-20 08:00"),
	})
	now := mustParse(t, "2025-08-01 21:00")

	next, ok := s.NextAfter(now)
	if !ok || Format(next) != "2025-08-03 08:00" {
		t.Fatalf("NextAfter = %v %v", next, ok)
	}

	week := s.Within(now, 7*24*time.Hour)
	if len(week) != 1 || Format(week[0]) != "2025-08-03 08:00" {
		t.Fatalf("Within = %v", week)
	}

	last, ok := s.Last()
	if !ok || Format(last) != "2025-08-20 08:00" {
		t.Fatalf("Last = %v %v", last, ok)
	}
}

func TestNextAfterEmpty(t *testing.T) {
	t.Parallel()
	s := NewSchedule(nil)
	if _, ok := s.NextAfter(time.Now()); ok {
		t.Fatal("NextAfter on empty schedule reported an event")
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()
	s := NewSchedule([]time.Time{
		mustParse(t, "2025-08-01 20:00"),
		mustParse(t, "2025-08-03 08:00"),
		mustParse(t, "2025-08-05 20:00"),
	})
	removed := s.PruneBefore(mustParse(t, "2025-08-03 08:00"))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if s.Len() != 2 || !s.Contains(mustParse(t, "2025-08-03 08:00")) {
		t.Fatalf("unexpected schedule after prune: %v", s.All())
	}
}

func TestSeedIsSortedAndUnique(t *testing.T) {
	t.Parallel()
	seed := Seed()
	if len(seed) == 0 {
		t.Fatal("empty seed")
	}
	s := NewSchedule(seed)
	if s.Len() != len(seed) {
		t.Fatalf("seed contains duplicates: %d vs %d", s.Len(), len(seed))
	}
}
