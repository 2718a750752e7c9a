package rift

import (
	"sort"
	"sync"
	"time"
)

// ConflictError reports a Replace whose target instant is already occupied
// by a different event.
type ConflictError struct {
	At time.Time
}

func (e *ConflictError) Error() string {
	return "rift: event already scheduled at " + Format(e.At)
}

// Schedule is an ascending-ordered set of normalized UTC instants.
//
// Reads return copies; the internal slice is never exposed, so readers
// cannot observe a mid-mutation state.
type Schedule struct {
	mu    sync.RWMutex
	times []time.Time
}

// NewSchedule builds a schedule from the given instants, normalizing,
// deduplicating and sorting them.
func NewSchedule(times []time.Time) *Schedule {
	s := &Schedule{}
	s.mu.Lock()
	s.mergeLocked(times)
	s.mu.Unlock()
	return s
}

// All returns a copy of the ordered event list.
func (s *Schedule) All() []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]time.Time, len(s.times))
	copy(out, s.times)
	return out
}

func (s *Schedule) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.times)
}

// Contains reports whether the normalized instant is in the set.
func (s *Schedule) Contains(t time.Time) bool {
	t = Normalize(t)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(t) >= 0
}

// NextAfter returns the first event strictly after now.
func (s *Schedule) NextAfter(now time.Time) (time.Time, bool) {
	now = now.UTC()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.times {
		if t.After(now) {
			return t, true
		}
	}
	return time.Time{}, false
}

// Within returns all events in the half-open window (now, now+d].
func (s *Schedule) Within(now time.Time, d time.Duration) []time.Time {
	now = now.UTC()
	end := now.Add(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, t := range s.times {
		if t.After(now) && !t.After(end) {
			out = append(out, t)
		}
	}
	return out
}

// Last returns the final event in the schedule.
func (s *Schedule) Last() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.times) == 0 {
		return time.Time{}, false
	}
	return s.times[len(s.times)-1], true
}

// Merge adds any candidates not already present and reports how many were
// actually added. Merging the same set twice adds zero the second time.
func (s *Schedule) Merge(candidates []time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(candidates)
}

// Replace swaps old for new in place, preserving sort order. It fails with
// *ConflictError when new already exists in the set and differs from old,
// so two events can never collapse onto one slot. Replacing an instant that
// is not present simply inserts the new one.
func (s *Schedule) Replace(old, new time.Time) error {
	old = Normalize(old)
	new = Normalize(new)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !new.Equal(old) && s.indexLocked(new) >= 0 {
		return &ConflictError{At: new}
	}
	if i := s.indexLocked(old); i >= 0 {
		s.times = append(s.times[:i], s.times[i+1:]...)
	}
	s.mergeLocked([]time.Time{new})
	return nil
}

// PruneBefore drops events strictly before cutoff and reports how many
// were removed.
func (s *Schedule) PruneBefore(cutoff time.Time) int {
	cutoff = cutoff.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.times {
		if !t.Before(cutoff) {
			s.times[n] = t
			n++
		}
	}
	removed := len(s.times) - n
	s.times = s.times[:n]
	return removed
}

// mergeLocked inserts normalized candidates at their sorted position,
// skipping duplicates. The slice stays sorted after every insert so the
// membership check also catches a candidate repeated within one batch.
// Call with s.mu held.
func (s *Schedule) mergeLocked(candidates []time.Time) int {
	added := 0
	for _, c := range candidates {
		c = Normalize(c)
		i := sort.Search(len(s.times), func(i int) bool { return !s.times[i].Before(c) })
		if i < len(s.times) && s.times[i].Equal(c) {
			continue
		}
		s.times = append(s.times, time.Time{})
		copy(s.times[i+1:], s.times[i:])
		s.times[i] = c
		added++
	}
	return added
}

// indexLocked returns the position of t in the sorted slice, or -1.
// Call with s.mu held.
func (s *Schedule) indexLocked(t time.Time) int {
	i := sort.Search(len(s.times), func(i int) bool { return !s.times[i].Before(t) })
	if i < len(s.times) && s.times[i].Equal(t) {
		return i
	}
	return -1
}
