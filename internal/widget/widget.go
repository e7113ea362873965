// Package widget composes the timer, the persistence adapter and the view
// into the single streak counter a front end drives.
package widget

import (
	"context"
	"errors"
	"time"

	"github.com/goodtune/streak/internal/persist"
	"github.com/goodtune/streak/internal/timer"
	"github.com/goodtune/streak/internal/view"
	"github.com/rs/zerolog"
)

// Options configures Mount.
type Options struct {
	Timer     timer.Options
	Persist   persist.Options // Logger is taken from Options.Logger
	Opener    persist.Opener
	Autostart bool
	Logger    zerolog.Logger
	// OnChange observers are registered before the clock starts.
	OnChange []func(timer.Change)
}

// Widget is one mounted streak counter.
type Widget struct {
	logger  zerolog.Logger
	timer   *timer.Timer
	adapter *persist.Adapter

	cancel   context.CancelFunc
	restored chan struct{}

	// forwarding is only touched from the timer observer, which runs under
	// the timer's lock.
	forwarding bool
}

// Mount creates the counter, starts opening the store in the background and,
// with Autostart set, starts the clock immediately. The persisted value is
// added to the counter once the store is ready.
func Mount(ctx context.Context, opts Options) *Widget {
	logger := opts.Logger.With().Str("component", "widget").Logger()
	opts.Persist.Logger = opts.Logger

	ctx, cancel := context.WithCancel(ctx)
	w := &Widget{
		logger:   logger,
		timer:    timer.New(opts.Timer),
		cancel:   cancel,
		restored: make(chan struct{}),
	}

	for _, fn := range opts.OnChange {
		w.timer.OnChange(fn)
	}
	w.timer.OnChange(w.forward)

	w.adapter = persist.Open(ctx, opts.Opener, opts.Persist)

	if opts.Autostart {
		w.timer.Start()
	}

	go w.restore(ctx)
	return w
}

// forward hands changes to the adapter once the persisted value has been
// restored, so the zero counted before load never overwrites it.
func (w *Widget) forward(c timer.Change) {
	if c.Cause == timer.CauseRestore {
		w.forwarding = true
	}
	if w.forwarding {
		w.adapter.Save(c.Value)
	}
}

func (w *Widget) restore(ctx context.Context) {
	defer close(w.restored)

	value, err := w.adapter.Initial(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Warn().Err(err).Msg("Gave up waiting for store")
		}
		return
	}

	if w.timer.Restore(value) {
		w.logger.Info().Int64("seconds", value).Msg("Restored streak")
	} else if value > 0 {
		w.logger.Info().Int64("seconds", value).Msg("Discarded stored streak after reset")
	}
}

// Restored is closed once the stored value has been applied or discarded.
func (w *Widget) Restored() <-chan struct{} { return w.restored }

// Start is the "Iniciar" action.
func (w *Widget) Start() view.Snapshot {
	w.timer.Start()
	return w.Snapshot()
}

// Reset is the "Resetar" action.
func (w *Widget) Reset() view.Snapshot {
	w.timer.Reset()
	return w.Snapshot()
}

// Snapshot renders the current state.
func (w *Widget) Snapshot() view.Snapshot {
	value, running := w.timer.State()
	return view.NewSnapshot(value, running)
}

// StoreAvailable reports whether persisted state is being written.
func (w *Widget) StoreAvailable() bool { return w.adapter.Available() }

// Unmount stops the clock, flushes the last value and closes the store.
func (w *Widget) Unmount(ctx context.Context) error {
	w.timer.Stop()

	// Let an in-flight restore finish so its value is flushed too.
	select {
	case <-w.restored:
	case <-time.After(100 * time.Millisecond):
		w.cancel()
		<-w.restored
	}

	err := w.adapter.Close(ctx)
	w.cancel()
	return err
}
