package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goodtune/streak/internal/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.db"))
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first save, got %v", err)
	}

	for _, value := range []int64{41, 42} {
		if err := store.Save(ctx, value); err != nil {
			t.Fatalf("save %d: %v", value, err)
		}
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	var rows int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM timer").Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single timer row, got %d", rows)
	}
}

func TestMigrationsRunOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streak.db")

	store := openTestStore(t, path)
	if err := store.Save(context.Background(), 99); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	defer func() { _ = reopened.Close() }()

	var applied int
	if err := reopened.db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != len(getMigrations()) {
		t.Fatalf("expected %d applied migrations, got %d", len(getMigrations()), applied)
	}

	version, err := reopened.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != storage.SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", storage.SchemaVersion, version)
	}

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 99 {
		t.Fatalf("expected 99 after reopen, got %d", got)
	}
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
