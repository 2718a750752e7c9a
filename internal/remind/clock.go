package remind

import "time"

// Timer is the handle an armed reminder holds onto its wakeup.
type Timer interface {
	// Stop cancels the pending wakeup. Stopping an already-fired or
	// already-stopped timer is a no-op.
	Stop() bool
}

// Clock abstracts timer creation so the scheduler is testable without
// real waiting.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns the wall-clock implementation.
func RealClock() Clock { return realClock{} }
