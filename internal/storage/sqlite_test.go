package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"riftbot/pkg/logx"
)

func TestSQLiteFreshDatabaseIsNotFound(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rifts.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if _, err := st.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on fresh database = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rifts.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	in := []time.Time{
		time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 3, 8, 0, 0, 0, time.UTC),
	}
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || !out[0].Equal(in[0]) || !out[1].Equal(in[1]) {
		t.Fatalf("loaded %v, want %v", out, in)
	}
}

func TestSQLiteEmptySaveIsEmptyNotMissing(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rifts.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	// A deliberately persisted empty schedule must come back as empty,
	// not as "no state" (which would resurrect the seed list).
	if err := st.Save(ctx, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load after empty save = %v, want nil", err)
	}
	if len(out) != 0 {
		t.Fatalf("loaded %v, want empty", out)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Same answer across a restart: the file exists, so empty stays empty.
	st2, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	out, err = st2.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen = %v, want nil", err)
	}
	if len(out) != 0 {
		t.Fatalf("loaded %v after reopen, want empty", out)
	}
}
