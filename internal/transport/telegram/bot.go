// Package telegram is the bot transport: the telebot session, the cached
// chat resolver, the command router and the reminder delivery glue.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"riftbot/internal/dispatch"
	"riftbot/internal/notify"
	"riftbot/internal/remind"
	"riftbot/internal/rift"
	"riftbot/internal/storage"
	"riftbot/pkg/logx"
)

type Config struct {
	Token          string
	AnnounceChatID int64
	AdminUserIDs   []int64
	PollTimeout    time.Duration
	UserRatePerMin int
}

// Bot glues the schedule, the reminder scheduler and the dispatch queue to
// a Telegram session. It implements remind.Notifier.
type Bot struct {
	log   logx.Logger
	tb    *tele.Bot
	queue *dispatch.Queue
	sched *rift.Schedule
	rem   *remind.Scheduler
	store storage.Store

	resolver *Resolver

	announceChatID int64

	mu       sync.Mutex
	admins   map[int64]bool
	limiters map[int64]*userLimiter
	perMin   int

	runMu   sync.Mutex
	running bool
	stopped chan struct{}
}

func New(cfg Config, sched *rift.Schedule, store storage.Store, queue *dispatch.Queue, log logx.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}

	perMin := cfg.UserRatePerMin
	if perMin <= 0 {
		perMin = 20
	}

	b := &Bot{
		log:            log,
		tb:             tb,
		queue:          queue,
		sched:          sched,
		store:          store,
		resolver:       NewResolver(tb, log),
		announceChatID: cfg.AnnounceChatID,
		admins:         adminSet(cfg.AdminUserIDs),
		limiters:       map[int64]*userLimiter{},
		perMin:         perMin,
	}
	b.registerHandlers()
	return b, nil
}

// SetScheduler wires the reminder scheduler after construction (the
// scheduler needs the bot as its notifier, so the two are created in
// sequence).
func (b *Bot) SetScheduler(rem *remind.Scheduler) { b.rem = rem }

// ApplyConfig applies the hot-reloadable parts (admin list, user rate).
func (b *Bot) ApplyConfig(cfg Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.admins = adminSet(cfg.AdminUserIDs)
	if cfg.UserRatePerMin > 0 {
		b.perMin = cfg.UserRatePerMin
		b.limiters = map[int64]*userLimiter{}
	}
}

func adminSet(ids []int64) map[int64]bool {
	m := make(map[int64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// Start begins long polling in the background; the poller stops when ctx
// is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.runMu.Lock()
	if b.running {
		b.runMu.Unlock()
		return
	}
	b.running = true
	b.stopped = make(chan struct{})
	stopped := b.stopped
	b.runMu.Unlock()

	go func() {
		<-ctx.Done()
		b.tb.Stop()
	}()
	go func() {
		defer close(stopped)
		b.log.Info("polling started", logx.String("bot", b.tb.Me.Username))
		b.tb.Start()
	}()
}

// Stop waits for the poller to exit after Start's context is cancelled.
func (b *Bot) Stop(ctx context.Context) {
	b.runMu.Lock()
	stopped := b.stopped
	b.runMu.Unlock()
	if stopped == nil {
		return
	}
	select {
	case <-stopped:
	case <-ctx.Done():
	}
}

// IsThrottled classifies a Telegram flood rejection (HTTP 429). The
// dispatch queue uses it to decide on its single backoff retry.
func IsThrottled(err error) bool {
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return true
	}
	var fep *tele.FloodError
	return errors.As(err, &fep)
}

// Notify is the firing path: resolve the announce chat, render the
// deterministic variant, enqueue. A resolution failure abandons this one
// reminder without retry; the destination rarely changes, so the loss is
// accepted rather than buffered.
func (b *Bot) Notify(event time.Time, lead time.Duration) {
	chat, err := b.resolver.Resolve(b.announceChatID)
	if err != nil {
		b.log.Error("announce chat unresolved; reminder abandoned",
			logx.Int64("chat_id", b.announceChatID),
			logx.String("event", rift.Format(event)),
			logx.Duration("lead", lead),
			logx.Err(err))
		return
	}
	text := notify.Reminder(event, lead)
	label := fmt.Sprintf("reminder %s -%dm", rift.Format(event), int(lead/time.Minute))
	b.queue.Enqueue(dispatch.Entry{
		Label: label,
		Send: func(ctx context.Context) error {
			_, err := b.tb.Send(chat, text, tele.ModeHTML)
			return err
		},
	})
}

// announce queues a plain group announcement (e.g. after an import).
func (b *Bot) announce(label, text string) {
	chat, err := b.resolver.Resolve(b.announceChatID)
	if err != nil {
		b.log.Warn("announce chat unresolved; announcement skipped", logx.String("what", label), logx.Err(err))
		return
	}
	b.queue.Enqueue(dispatch.Entry{
		Label: label,
		Send: func(ctx context.Context) error {
			_, err := b.tb.Send(chat, text, tele.ModeHTML)
			return err
		},
	})
}

// persist writes the current schedule. The in-memory schedule stays
// authoritative; a failure is reported to the operator but not rolled
// back, since the scheduling decision already happened.
func (b *Bot) persist(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.Save(ctx, b.sched.All()); err != nil {
		b.log.Error("schedule persist failed", logx.Err(err))
		return err
	}
	return nil
}
