package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"riftbot/pkg/logx"
)

// ErrThrottled marks a send rejected for rate. Senders may wrap it; the
// worker also consults the optional Config.IsThrottle classifier for
// transport-native throttle errors.
var ErrThrottled = errors.New("dispatch: throttled")

// Entry is one pending outbound notification. Send must be safe to call
// twice: the worker re-invokes it once after a throttle backoff.
type Entry struct {
	Label string
	Send  func(ctx context.Context) error
}

// Clock abstracts waiting so pacing and backoff are testable without real
// delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// RealClock returns the wall-clock implementation.
func RealClock() Clock { return realClock{} }

type Config struct {
	// Pace is the fixed pause after every attempt. Default 250ms.
	Pace time.Duration
	// ThrottleBackoff is the wait before the single retry. Default 5s.
	ThrottleBackoff time.Duration
	// IsThrottle classifies transport errors as rate rejections.
	IsThrottle func(error) bool
}

func (c Config) withDefaults() Config {
	if c.Pace <= 0 {
		c.Pace = 250 * time.Millisecond
	}
	if c.ThrottleBackoff <= 0 {
		c.ThrottleBackoff = 5 * time.Second
	}
	return c
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Enqueued  uint64
	Delivered uint64
	Retried   uint64
	Dropped   uint64
}

// Queue is the single-consumer pipeline. Enqueue never blocks and never
// drops; capacity is unbounded (producer volume is at most four timers per
// scheduled event).
type Queue struct {
	cfg   Config
	log   logx.Logger
	clock Clock

	mu      sync.Mutex
	cond    *sync.Cond
	entries []Entry
	stopped bool

	runCancel context.CancelFunc
	wg        sync.WaitGroup

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	retried   atomic.Uint64
	dropped   atomic.Uint64
}

func New(cfg Config, clock Clock, log logx.Logger) *Queue {
	if clock == nil {
		clock = realClock{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	q := &Queue{cfg: cfg.withDefaults(), log: log, clock: clock}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an entry and returns immediately. The caller never waits
// for delivery. Entries submitted after Stop are dropped.
func (q *Queue) Enqueue(e Entry) {
	if e.Send == nil {
		return
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		q.dropped.Add(1)
		q.log.Warn("entry dropped (queue stopped)", logx.String("entry", e.Label))
		return
	}
	q.entries = append(q.entries, e)
	q.mu.Unlock()
	q.enqueued.Add(1)
	q.cond.Signal()
}

// Len reports the number of entries waiting for the worker.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Delivered: q.delivered.Load(),
		Retried:   q.retried.Load(),
		Dropped:   q.dropped.Load(),
	}
}

// Start launches the worker. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.runCancel != nil || q.stopped {
		q.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.runCancel = cancel
	q.mu.Unlock()

	// Wake the worker out of cond.Wait when the context dies.
	go func() {
		<-runCtx.Done()
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				q.log.Error("panic in dispatch worker", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		q.worker(runCtx)
	}()
	q.log.Debug("dispatch worker started", logx.Duration("pace", q.cfg.Pace))
}

// Stop cancels the worker and waits for it to exit (or for ctx).
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	cancel := q.runCancel
	q.runCancel = nil
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (q *Queue) worker(ctx context.Context) {
	for {
		e, ok := q.pop(ctx)
		if !ok {
			return
		}
		q.attempt(ctx, e)
		if err := q.clock.Sleep(ctx, q.cfg.Pace); err != nil {
			return
		}
	}
}

// pop blocks until an entry is available or the queue stops.
func (q *Queue) pop(ctx context.Context) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) == 0 {
		if q.stopped || ctx.Err() != nil {
			return Entry{}, false
		}
		q.cond.Wait()
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// attempt runs the send with the throttle-retry policy: attempt, on a
// throttle signal wait the fixed backoff and attempt once more, then give
// up. Failures never propagate past here.
func (q *Queue) attempt(ctx context.Context, e Entry) {
	err := e.Send(ctx)
	if err == nil {
		q.delivered.Add(1)
		return
	}
	if !q.isThrottle(err) {
		q.dropped.Add(1)
		q.log.Warn("send failed; entry dropped", logx.String("entry", e.Label), logx.Err(err))
		return
	}

	q.retried.Add(1)
	q.log.Debug("send throttled; retrying once", logx.String("entry", e.Label), logx.Duration("backoff", q.cfg.ThrottleBackoff))
	if serr := q.clock.Sleep(ctx, q.cfg.ThrottleBackoff); serr != nil {
		q.dropped.Add(1)
		return
	}
	if err := e.Send(ctx); err != nil {
		q.dropped.Add(1)
		q.log.Warn("send failed after retry; entry dropped", logx.String("entry", e.Label), logx.Err(err))
		return
	}
	q.delivered.Add(1)
}

func (q *Queue) isThrottle(err error) bool {
	if errors.Is(err, ErrThrottled) {
		return true
	}
	return q.cfg.IsThrottle != nil && q.cfg.IsThrottle(err)
}
