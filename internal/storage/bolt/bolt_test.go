package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goodtune/streak/internal/storage"
	"go.etcd.io/bbolt"
)

func TestStoreLoadBeforeSave(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.bolt"))
	defer func() { _ = store.Close() }()

	_, err := store.Load(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streak.bolt")

	store := openTestStore(t, path)
	if err := store.Save(context.Background(), 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(context.Background(), 43); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 43 {
		t.Fatalf("expected 43, got %d", got)
	}

	version, err := reopened.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != storage.SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", storage.SchemaVersion, version)
	}
}

func TestStoreRecordShape(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.bolt"))
	defer func() { _ = store.Close() }()

	if err := store.Save(context.Background(), 7); err != nil {
		t.Fatalf("save: %v", err)
	}

	err := store.view(context.Background(), func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketTimer)).Get([]byte("1"))
		if string(raw) != `{"id":1,"time":7}` {
			t.Errorf("unexpected record: %s", raw)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestStoreCorruptRecord(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.bolt"))
	defer func() { _ = store.Close() }()

	err := store.update(context.Background(), func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketTimer)).Put([]byte("1"), []byte("not json"))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStoreCanceledContext(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.bolt"))
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Save(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreReadableWhileWriterOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streak.bolt")

	writer := openTestStore(t, path)
	defer func() { _ = writer.Close() }()

	if err := writer.Save(context.Background(), 42); err != nil {
		t.Fatalf("save: %v", err)
	}

	reader, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("open read-only: %v", err)
	}
	defer func() { _ = reader.Close() }()

	got, err := reader.Load(context.Background())
	if err != nil {
		t.Fatalf("load while writer open: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	if err := writer.Save(context.Background(), 43); err != nil {
		t.Fatalf("save after read: %v", err)
	}
	if got, _ := reader.Load(context.Background()); got != 43 {
		t.Fatalf("expected reader to see 43, got %d", got)
	}
}

func TestReadOnlyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bolt")

	reader, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("open read-only: %v", err)
	}

	if _, err := reader.Load(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing file, got %v", err)
	}
	if err := reader.Save(context.Background(), 1); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestStoreClosed(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "streak.bolt"))
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := store.Save(context.Background(), 1); !errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		t.Fatalf("expected ErrDatabaseNotOpen, got %v", err)
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
