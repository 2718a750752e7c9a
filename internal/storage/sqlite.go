package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"riftbot/internal/rift"
	"riftbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rifts (
    at TEXT PRIMARY KEY
);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	// fresh marks a database created by this process that has never been
	// saved to. Only then does an empty table mean "no persisted state";
	// once a Save happened (or the file predates us), empty is a real,
	// deliberately empty schedule.
	fresh atomic.Bool
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	_, statErr := os.Stat(cfg.Path)
	firstRun := errors.Is(statErr, os.ErrNotExist)

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &sqliteStore{db: db, log: log}
	s.fresh.Store(firstRun)
	return s, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT at FROM rifts ORDER BY at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := rift.Parse(raw)
		if err != nil {
			s.log.Warn("skipping unparseable schedule row", logx.String("at", raw), logx.Err(err))
			continue
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if s.fresh.Load() {
			return nil, ErrNotFound
		}
		return []time.Time{}, nil
	}
	return out, nil
}

// Save rewrites the table wholesale inside one transaction, mirroring the
// file driver's replace-the-whole-state semantics.
func (s *sqliteStore) Save(ctx context.Context, times []time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rifts`); err != nil {
		return err
	}
	for _, t := range times {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rifts(at) VALUES(?)`, rift.Format(t)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.fresh.Store(false)
	return nil
}
