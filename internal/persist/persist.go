// Package persist connects a timer to a storage.Store without ever blocking
// the caller. The store is opened and read on a background goroutine behind a
// one-shot readiness gate, and writes are coalesced so only the latest value
// is persisted.
package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goodtune/streak/internal/storage"
	"github.com/rs/zerolog"
)

// Opener opens the backing store. It runs on the adapter's goroutine.
type Opener func(ctx context.Context) (storage.Store, error)

// Observer is told about every write attempt.
type Observer interface {
	Written()
	Failed(op string)
}

type nopObserver struct{}

func (nopObserver) Written()      {}
func (nopObserver) Failed(string) {}

// Operation labels passed to Observer.Failed.
const (
	OpOpen  = "open"
	OpLoad  = "load"
	OpWrite = "write"
	OpClose = "close"
)

// Options configures an Adapter.
type Options struct {
	Logger       zerolog.Logger
	Observer     Observer
	OpenTimeout  time.Duration
	WriteTimeout time.Duration
}

// Adapter is the write-behind persistence layer for a single counter value.
type Adapter struct {
	logger       zerolog.Logger
	observer     Observer
	openTimeout  time.Duration
	writeTimeout time.Duration

	ready     chan struct{}
	readyOnce sync.Once
	store     storage.Store
	initial   int64

	mu      sync.Mutex
	pending int64
	dirty   bool

	wake      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	cancel    context.CancelFunc
	closeErr  error
}

// Open starts opening the store in the background and returns immediately.
func Open(ctx context.Context, open Opener, opts Options) *Adapter {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &Adapter{
		logger:       opts.Logger.With().Str("component", "persist").Logger(),
		observer:     opts.Observer,
		openTimeout:  opts.OpenTimeout,
		writeTimeout: opts.WriteTimeout,
		ready:        make(chan struct{}),
		wake:         make(chan struct{}, 1),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
		cancel:       cancel,
	}
	go a.run(ctx, open)
	return a
}

// Ready is closed once the open and initial read have finished, whether or
// not they succeeded.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

// Available reports whether a store is attached. It is only meaningful after
// Ready is closed.
func (a *Adapter) Available() bool {
	select {
	case <-a.ready:
		return a.store != nil
	default:
		return false
	}
}

// Initial waits for readiness and returns the value read from the store, or 0
// if there was none.
func (a *Adapter) Initial(ctx context.Context) (int64, error) {
	select {
	case <-a.ready:
		return a.initial, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Save records seconds as the value to persist next. It never blocks.
func (a *Adapter) Save(seconds int64) {
	a.mu.Lock()
	a.pending = seconds
	a.dirty = true
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close flushes the pending value and closes the store.
func (a *Adapter) Close(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.closing) })

	select {
	case <-a.done:
		return a.closeErr
	case <-ctx.Done():
		a.cancel()
		return ctx.Err()
	}
}

func (a *Adapter) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

func (a *Adapter) run(ctx context.Context, open Opener) {
	defer close(a.done)
	defer a.cancel()
	defer a.markReady()

	a.store = a.openAndLoad(ctx, open)
	a.markReady()

	if a.store == nil {
		<-a.closing
		return
	}

	for {
		select {
		case <-a.wake:
			a.flush(ctx)
		case <-a.closing:
			a.flush(ctx)
			if err := a.store.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to close store")
				a.observer.Failed(OpClose)
				a.closeErr = err
			}
			return
		}
	}
}

func (a *Adapter) openAndLoad(ctx context.Context, open Opener) storage.Store {
	openCtx, cancel := context.WithTimeout(ctx, a.openTimeout)
	defer cancel()

	store, err := open(openCtx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to open store, counter will not be persisted")
		a.observer.Failed(OpOpen)
		return nil
	}

	value, err := store.Load(openCtx)
	switch {
	case err == nil:
		a.initial = value
		a.logger.Debug().Int64("seconds", value).Msg("Loaded persisted value")
	case errors.Is(err, storage.ErrNotFound):
		a.logger.Debug().Msg("No persisted value, starting from zero")
	case errors.Is(err, storage.ErrCorrupt):
		a.logger.Warn().Err(err).Msg("Ignoring unparsable persisted value")
		a.observer.Failed(OpLoad)
	default:
		a.logger.Error().Err(err).Msg("Failed to read persisted value")
		a.observer.Failed(OpLoad)
	}
	return store
}

func (a *Adapter) flush(ctx context.Context) {
	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return
	}
	value := a.pending
	a.dirty = false
	a.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, a.writeTimeout)
	defer cancel()

	if err := a.store.Save(writeCtx, value); err != nil {
		a.logger.Error().Err(err).Int64("seconds", value).Msg("Failed to persist value")
		a.observer.Failed(OpWrite)
		return
	}
	a.observer.Written()
}
