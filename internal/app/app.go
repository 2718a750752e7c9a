// Package app assembles the bot: config, storage, schedule, reminder
// scheduler, dispatch queue, transport, health endpoint and the cron
// watchdog, with a single Start/Stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"riftbot/internal/config"
	"riftbot/internal/dispatch"
	"riftbot/internal/health"
	"riftbot/internal/remind"
	"riftbot/internal/rift"
	"riftbot/internal/storage"
	"riftbot/internal/transport/telegram"
	"riftbot/pkg/logx"
)

const defaultWatchdogSpec = "@every 5m"

type App struct {
	log logx.Logger
	mgr *config.Manager

	store  storage.Store
	sched  *rift.Schedule
	queue  *dispatch.Queue
	rem    *remind.Scheduler
	bot    *telegram.Bot
	health *health.Server
	cron   *cron.Cron

	watchCancel context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	log := logx.NewConsole("info")
	mgr := config.NewManager(cfgPath, log)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log = log.SetLevel(cfg.Logging.Level)

	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	// A missing or unreadable persisted schedule never stops startup;
	// the built-in seed takes over.
	times, err := store.Load(context.Background())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("no persisted schedule; using seed")
		} else {
			log.Warn("persisted schedule unreadable; using seed", logx.Err(err))
		}
		times = rift.Seed()
	}
	sched := rift.NewSchedule(times)

	pace, _ := config.ParseDurationOrDefault("dispatch.pace", cfg.Dispatch.Pace, 250*time.Millisecond)
	backoff, _ := config.ParseDurationOrDefault("dispatch.throttle_backoff", cfg.Dispatch.ThrottleBackoff, 5*time.Second)
	queue := dispatch.New(dispatch.Config{
		Pace:            pace,
		ThrottleBackoff: backoff,
		IsThrottle:      telegram.IsThrottled,
	}, nil, log.With(logx.String("comp", "dispatch")))

	bot, err := telegram.New(botConfig(cfg), sched, store, queue, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	rem := remind.NewScheduler(sched, bot, nil, log.With(logx.String("comp", "remind")))
	bot.SetScheduler(rem)

	a := &App{
		log:   log,
		mgr:   mgr,
		store: store,
		sched: sched,
		queue: queue,
		rem:   rem,
		bot:   bot,
	}

	if cfg.Health.Enabled {
		a.health = health.NewServer(cfg.Health.Addr, log.With(logx.String("comp", "health")))
	}

	a.cron = cron.New()
	spec := cfg.Watchdog.Spec
	if spec == "" {
		spec = defaultWatchdogSpec
	}
	if _, err := a.cron.AddFunc(spec, a.watchdog); err != nil {
		log.Warn("invalid watchdog spec; using default", logx.String("spec", spec), logx.Err(err))
		_, _ = a.cron.AddFunc(defaultWatchdogSpec, a.watchdog)
	}
	_, _ = a.cron.AddFunc("@daily", a.pruneOld)

	mgr.OnChange = func(cfg *config.Config) {
		bot.ApplyConfig(botConfig(cfg))
		a.log.Info("applied config change", logx.Int("admins", len(cfg.Telegram.AdminUserIDs)))
	}

	return a, nil
}

func botConfig(cfg *config.Config) telegram.Config {
	poll, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	return telegram.Config{
		Token:          cfg.ResolveToken(),
		AnnounceChatID: cfg.Telegram.AnnounceChatID,
		AdminUserIDs:   cfg.Telegram.AdminUserIDs,
		PollTimeout:    poll,
		UserRatePerMin: cfg.Telegram.UserRatePerMin,
	}
}

func (a *App) Start(ctx context.Context) error {
	a.queue.Start(ctx)
	a.bot.Start(ctx)

	// Exactly once at process start; the watchdog re-runs it later only
	// when the bookkeeping has gone empty.
	a.rem.ScheduleAll()

	a.cron.Start()
	if a.health != nil {
		a.health.Start()
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go func() {
		if err := a.mgr.Watch(wctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.log.Info("riftbot started",
		logx.Int("events", a.sched.Len()),
		logx.Int("timers", a.rem.ActiveTimers()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
	}
	<-a.cron.Stop().Done()
	a.bot.Stop(ctx)
	a.queue.Stop(ctx)
	if a.health != nil {
		a.health.Stop(ctx)
	}
	err := a.store.Close()
	a.log.Info("riftbot stopped")
	return err
}

// watchdog re-arms all reminders when none are pending. Covers the
// reconnect case where the previous timer set was lost without the process
// dying.
func (a *App) watchdog() {
	if a.rem.EnsureScheduled() {
		a.log.Info("watchdog rescheduled reminders", logx.Int("timers", a.rem.ActiveTimers()))
	}
}

// pruneOld drops events more than a day in the past. Their timers are long
// gone, so only the store changes.
func (a *App) pruneOld() {
	removed := a.sched.PruneBefore(time.Now().Add(-24 * time.Hour))
	if removed == 0 {
		return
	}
	a.log.Info("pruned past events", logx.Int("removed", removed))
	if err := a.store.Save(context.Background(), a.sched.All()); err != nil {
		a.log.Warn("persist after prune failed", logx.Err(err))
	}
}
