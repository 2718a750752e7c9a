package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"riftbot/pkg/logx"
)

// Store is the persistence API for the event schedule.
type Store interface {
	Load(ctx context.Context) ([]time.Time, error)
	Save(ctx context.Context, times []time.Time) error
	Close() error
}

// ErrNotFound is returned by Load when no persisted state exists yet.
// Callers fall back to the built-in seed schedule.
var ErrNotFound = errors.New("storage: no persisted schedule")

// Config selects and configures a driver.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
