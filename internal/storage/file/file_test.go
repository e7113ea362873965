package file

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/goodtune/streak/internal/storage"
	"github.com/spf13/afero"
)

func TestStoreRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store, err := OpenWithFS("/var/lib/streak/time", fsys)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Save(context.Background(), 42); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := afero.ReadFile(fsys, "/var/lib/streak/time")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "42\n" {
		t.Fatalf("unexpected file contents %q", raw)
	}

	if exists, _ := afero.Exists(fsys, "/var/lib/streak/time.tmp"); exists {
		t.Fatal("temp file left behind")
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestStoreUnparsable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/time", []byte("forty-two"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store, err := OpenWithFS("/time", fsys)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "time")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save(context.Background(), 86400); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != 86400 {
		t.Fatalf("expected 86400, got %d", got)
	}
}
