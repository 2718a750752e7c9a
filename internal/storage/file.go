package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

// fileStore persists the schedule as a JSON array of wire-format strings
// (rifts.json). Writes go through a tmp file and rename so a crash
// mid-write never leaves a torn file behind.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		path = "./rifts.json"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) ([]time.Time, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	out := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		t, err := rift.Parse(v)
		if err != nil {
			// One bad entry should not take out the whole schedule.
			s.log.Warn("skipping unparseable schedule entry", logx.String("entry", v), logx.Err(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fileStore) Save(ctx context.Context, times []time.Time) error {
	_ = ctx
	raw := make([]string, 0, len(times))
	for _, t := range times {
		raw = append(raw, rift.Format(t))
	}
	b, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
