package telegram

import (
	"sync"

	tele "gopkg.in/telebot.v4"

	"riftbot/pkg/logx"
)

// chatAPI is the slice of the telebot client the resolver needs.
type chatAPI interface {
	ChatByID(id int64) (*tele.Chat, error)
}

// Resolver memoizes chat lookups. A successful lookup is cached for the
// lifetime of the process; a failed lookup is returned as-is and NOT
// cached, so a transient outage self-heals on the next attempt.
type Resolver struct {
	api chatAPI
	log logx.Logger

	mu    sync.Mutex
	cache map[int64]*tele.Chat
}

func NewResolver(api chatAPI, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{api: api, log: log, cache: map[int64]*tele.Chat{}}
}

func (r *Resolver) Resolve(id int64) (*tele.Chat, error) {
	r.mu.Lock()
	if c, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return c, nil
	}
	r.mu.Unlock()

	// Remote lookup outside the lock; concurrent misses for the same id
	// just race to fill the cache with the same value.
	c, err := r.api.ChatByID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[id] = c
	r.mu.Unlock()
	r.log.Debug("chat resolved", logx.Int64("chat_id", id))
	return c, nil
}
