package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full bot configuration. Files may be JSON or YAML; YAML is
// coerced to JSON before strict decoding, so unknown fields are rejected in
// both formats.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
	Storage  StorageConfig  `json:"storage,omitempty"`
	Dispatch DispatchConfig `json:"dispatch,omitempty"`
	Health   HealthConfig   `json:"health,omitempty"`
	Watchdog WatchdogConfig `json:"watchdog,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and supplied via the
	// RIFTBOT_TOKEN environment variable instead.
	Token string `json:"token,omitempty"`

	// AnnounceChatID is the chat reminders are announced to.
	AnnounceChatID int64 `json:"announce_chat_id"`

	// AdminUserIDs may run the mutating commands (/uploadics, /shiftrift).
	AdminUserIDs []int64 `json:"admin_user_ids,omitempty"`

	// PollTimeout is the long-poll timeout (Go duration string, default 10s).
	PollTimeout string `json:"poll_timeout,omitempty"`

	// UserRatePerMin bounds commands accepted per user per minute
	// (default 20).
	UserRatePerMin int `json:"user_rate_per_min,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"` // trace|debug|info|warn|error
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "file" (default) or "sqlite"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite, Go duration string
}

type DispatchConfig struct {
	Pace            string `json:"pace,omitempty"`             // default "250ms"
	ThrottleBackoff string `json:"throttle_backoff,omitempty"` // default "5s"
}

type HealthConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"` // default ":8080"
}

type WatchdogConfig struct {
	// Spec is the cron spec for the reschedule-if-empty check
	// (default "@every 5m").
	Spec string `json:"spec,omitempty"`
}

// Validate checks the parts that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResolveToken()) == "" {
		return errors.New("telegram.token is required (or set RIFTBOT_TOKEN)")
	}
	if c.Telegram.AnnounceChatID == 0 {
		return errors.New("telegram.announce_chat_id is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("dispatch.pace", c.Dispatch.Pace); err != nil {
		return err
	}
	if _, err := ParseDurationField("dispatch.throttle_backoff", c.Dispatch.ThrottleBackoff); err != nil {
		return err
	}
	return nil
}

// ResolveToken returns the configured token, falling back to the
// RIFTBOT_TOKEN environment variable.
func (c *Config) ResolveToken() string {
	if t := strings.TrimSpace(c.Telegram.Token); t != "" {
		return t
	}
	return strings.TrimSpace(os.Getenv("RIFTBOT_TOKEN"))
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
