// Package remind owns the reminder timers.
//
// For every scheduled event and every lead time still in the future it arms
// one timer. All timers pending for one event form a group, keyed by the
// event's wire-format timestamp. The bookkeeping map is guarded by a single
// mutex; timers clean themselves up through an idempotent path that is safe
// against a concurrent cancel of their group, and an empty group is always
// removed rather than left behind.
//
// Missed lead times are skipped silently: a reminder whose fire-at instant
// has already passed at scheduling time is never sent retroactively.
package remind
