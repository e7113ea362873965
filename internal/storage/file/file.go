package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goodtune/streak/internal/storage"
	"github.com/spf13/afero"
)

// Store keeps the elapsed seconds as a decimal string in a single file, the
// on-disk equivalent of a browser key-value entry.
type Store struct {
	path string
	fs   afero.Fs
	mu   sync.Mutex
}

// Open returns a store rooted on the operating system filesystem.
func Open(path string) (*Store, error) { return OpenWithFS(path, afero.NewOsFs()) }

// OpenWithFS returns a store backed by the given filesystem.
func OpenWithFS(path string, fsys afero.Fs) (*Store, error) {
	af := &afero.Afero{Fs: fsys}
	if dir := filepath.Dir(path); dir != "." {
		if err := af.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &Store{path: path, fs: fsys}, nil
}

// Close is a no-op; every Save is already durable.
func (s *Store) Close() error { return nil }

// Load reads and parses the stored value.
func (s *Store) Load(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	af := &afero.Afero{Fs: s.fs}
	b, err := af.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	return storage.ParseSeconds(string(b))
}

// Save replaces the file contents through a temp file and rename so a crash
// never leaves a half-written value behind.
func (s *Store) Save(ctx context.Context, seconds int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "%s\n", storage.FormatSeconds(seconds)); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
