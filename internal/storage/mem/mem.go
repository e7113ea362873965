package mem

import (
	"context"
	"sync"

	"github.com/goodtune/streak/internal/storage"
)

// Store is an in-process storage.Store. Nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	value  int64
	saved  bool
	saves  int
	closed bool
}

func New() *Store { return &Store{} }

// NewWithValue returns a store that already holds seconds.
func NewWithValue(seconds int64) *Store { return &Store{value: seconds, saved: true} }

func (s *Store) Load(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return 0, storage.ErrNotFound
	}
	return s.value, nil
}

func (s *Store) Save(ctx context.Context, seconds int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = seconds
	s.saved = true
	s.saves++
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Saves reports how many writes reached the store.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
