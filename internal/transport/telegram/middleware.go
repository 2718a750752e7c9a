package telegram

import (
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"riftbot/pkg/logx"
)

type userLimiter struct {
	lim *rate.Limiter
}

// limiterFor returns (creating if needed) the per-user command limiter.
func (b *Bot) limiterFor(userID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	ul, ok := b.limiters[userID]
	if !ok {
		// perMin commands/minute with a small burst allowance.
		ul = &userLimiter{lim: rate.NewLimiter(rate.Limit(float64(b.perMin)/60.0), 5)}
		b.limiters[userID] = ul
	}
	return ul.lim
}

// rateLimit silently drops commands from users exceeding their budget.
func (b *Bot) rateLimit(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := c.Sender()
		if s == nil {
			return next(c)
		}
		if !b.limiterFor(s.ID).Allow() {
			b.log.Debug("command rate limited", logx.Int64("user_id", s.ID))
			return nil
		}
		return next(c)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.admins[userID]
}

// adminOnly gates the mutating commands behind the configured allowlist.
func (b *Bot) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := c.Sender()
		if s == nil || !b.isAdmin(s.ID) {
			return c.Send("You don't have permission to use this command.")
		}
		return next(c)
	}
}
