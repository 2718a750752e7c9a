package remind

import (
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

// LeadTimes are the fixed offsets before each event at which a reminder
// fires, longest first.
var LeadTimes = []time.Duration{
	60 * time.Minute,
	30 * time.Minute,
	15 * time.Minute,
	5 * time.Minute,
}

// Notifier delivers one reminder when a timer fires. Implementations must
// not panic the scheduling loop; the scheduler recovers and logs anyway.
type Notifier interface {
	Notify(event time.Time, lead time.Duration)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(event time.Time, lead time.Duration)

func (f NotifierFunc) Notify(event time.Time, lead time.Duration) { f(event, lead) }

// group is the set of still-pending timers for one event. The generation
// tag lets a timer that fires a moment after its group was cancelled (and
// possibly re-created) recognize that it is stale.
type group struct {
	gen    uint64
	event  time.Time
	timers map[time.Duration]Timer
}

// Scheduler turns the schedule into per-event, per-lead reminder timers.
type Scheduler struct {
	sched    *rift.Schedule
	notifier Notifier
	clock    Clock
	log      logx.Logger

	mu      sync.Mutex
	groups  map[string]*group // wire-format timestamp -> pending timers
	lastGen uint64
}

func NewScheduler(sched *rift.Schedule, notifier Notifier, clock Clock, log logx.Logger) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{
		sched:    sched,
		notifier: notifier,
		clock:    clock,
		log:      log,
		groups:   map[string]*group{},
	}
}

// ScheduleAll cancels every pending timer, clears the bookkeeping, and
// re-arms timers for every (event, lead) pair whose fire-at instant is
// still strictly in the future. It returns the number of timers armed.
func (s *Scheduler) ScheduleAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, g := range s.groups {
		for _, t := range g.timers {
			t.Stop()
		}
		delete(s.groups, key)
	}

	now := s.clock.Now()
	total := 0
	for _, event := range s.sched.All() {
		total += s.armLocked(event, now)
	}
	s.log.Info("reminders scheduled", logx.Int("timers", total), logx.Int("events", s.sched.Len()))
	return total
}

// EnsureScheduled re-runs ScheduleAll only when no timers are pending at
// all. This is the reconnect guard: a session drop must not double-arm
// reminders that are still live.
func (s *Scheduler) EnsureScheduled() bool {
	if s.ActiveTimers() > 0 {
		return false
	}
	s.log.Warn("no active reminder timers; rescheduling")
	s.ScheduleAll()
	return true
}

// RescheduleOne cancels the timer group for old (if any) and arms a fresh
// group for new. It returns the number of timers armed for new; zero means
// every lead time has already elapsed and the caller should warn the
// operator. The schedule itself is not touched here.
func (s *Scheduler) RescheduleOne(old, new time.Time) int {
	old = rift.Normalize(old)
	new = rift.Normalize(new)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(rift.Format(old))
	n := s.armLocked(new, s.clock.Now())
	s.log.Info("event rescheduled",
		logx.String("from", rift.Format(old)),
		logx.String("to", rift.Format(new)),
		logx.Int("timers", n))
	return n
}

// ScheduleEvent arms timers for a single event that has no group yet
// (e.g. freshly imported). Events already tracked are left alone.
func (s *Scheduler) ScheduleEvent(event time.Time) int {
	event = rift.Normalize(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[rift.Format(event)]; ok {
		return 0
	}
	return s.armLocked(event, s.clock.Now())
}

// CancelGroup cancels and removes the timer group for the given event.
// Cancelling a group that does not exist (or whose timers already fired)
// is a no-op.
func (s *Scheduler) CancelGroup(event time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(rift.Format(rift.Normalize(event)))
}

// ActiveTimers reports the number of pending timers across all groups.
func (s *Scheduler) ActiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.groups {
		n += len(g.timers)
	}
	return n
}

// HasGroup reports whether the event has anything pending. Because empty
// groups are always removed, this is a plain membership check.
func (s *Scheduler) HasGroup(event time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.groups[rift.Format(rift.Normalize(event))]
	return ok
}

// GroupInfo describes one event's pending timers.
type GroupInfo struct {
	Event time.Time
	Leads []time.Duration
}

// Snapshot returns the pending groups ordered by event time, for
// diagnostics.
func (s *Scheduler) Snapshot() []GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroupInfo, 0, len(s.groups))
	for _, g := range s.groups {
		gi := GroupInfo{Event: g.event}
		for lead := range g.timers {
			gi.Leads = append(gi.Leads, lead)
		}
		sort.Slice(gi.Leads, func(i, j int) bool { return gi.Leads[i] > gi.Leads[j] })
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event.Before(out[j].Event) })
	return out
}

// cancelLocked stops and removes the group under key. Call with s.mu held.
func (s *Scheduler) cancelLocked(key string) {
	g, ok := s.groups[key]
	if !ok {
		return
	}
	for _, t := range g.timers {
		t.Stop()
	}
	delete(s.groups, key)
}

// armLocked creates timers for every lead whose fire-at is strictly after
// now and installs the group if at least one timer was armed. Call with
// s.mu held.
func (s *Scheduler) armLocked(event time.Time, now time.Time) int {
	event = rift.Normalize(event)
	key := rift.Format(event)

	s.lastGen++
	g := &group{gen: s.lastGen, event: event, timers: map[time.Duration]Timer{}}

	for _, lead := range LeadTimes {
		fireAt := event.Add(-lead)
		if !fireAt.After(now) {
			continue
		}
		lead := lead
		gen := g.gen
		g.timers[lead] = s.clock.AfterFunc(fireAt.Sub(now), func() {
			s.fired(key, gen, event, lead)
		})
		s.log.Debug("reminder armed",
			logx.String("event", key),
			logx.Duration("lead", lead),
			logx.Time("fire_at", fireAt))
	}
	if len(g.timers) == 0 {
		return 0
	}
	s.groups[key] = g
	return len(g.timers)
}

// fired runs on the timer goroutine. Cleanup is unconditional and
// idempotent: whether delivery happened, failed, or the group was cancelled
// while we were waking up, the timer ends up removed exactly once and an
// emptied group disappears from the map.
func (s *Scheduler) fired(key string, gen uint64, event time.Time, lead time.Duration) {
	live := s.claim(key, gen, lead)
	defer s.cleanup(key, gen, lead)
	if !live {
		// Cancelled between the wakeup and this callback; stay silent.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in reminder delivery",
				logx.String("event", key),
				logx.Duration("lead", lead),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	s.log.Debug("reminder fired", logx.String("event", key), logx.Duration("lead", lead))
	s.notifier.Notify(event, lead)
}

// claim reports whether this timer is still the current one for its slot.
func (s *Scheduler) claim(key string, gen uint64, lead time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[key]
	if !ok || g.gen != gen {
		return false
	}
	_, ok = g.timers[lead]
	return ok
}

// cleanup removes the timer from its group and the group from the map once
// it is empty. Safe to call when the slot is already gone.
func (s *Scheduler) cleanup(key string, gen uint64, lead time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[key]
	if !ok || g.gen != gen {
		return
	}
	delete(g.timers, lead)
	if len(g.timers) == 0 {
		delete(s.groups, key)
	}
}
