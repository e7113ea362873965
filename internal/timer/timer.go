// Package timer implements the streak counter: an integer number of elapsed
// seconds advanced by a single periodic task.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ResetPolicy decides what the clock does after a reset.
type ResetPolicy string

const (
	// ResetStop zeroes the counter and stops the clock until Start.
	ResetStop ResetPolicy = "stop"
	// ResetContinue zeroes the counter and keeps ticking from zero.
	ResetContinue ResetPolicy = "continue"
)

// ParseResetPolicy converts a configuration string into a ResetPolicy.
func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch p := ResetPolicy(s); p {
	case ResetStop, ResetContinue:
		return p, nil
	case "":
		return ResetStop, nil
	default:
		return "", fmt.Errorf("unknown reset policy %q", s)
	}
}

// Cause identifies which mutation produced a Change.
type Cause int

const (
	CauseTick Cause = iota
	CauseReset
	CauseRestore
	CauseStart
	CauseStop
)

func (c Cause) String() string {
	switch c {
	case CauseTick:
		return "tick"
	case CauseReset:
		return "reset"
	case CauseRestore:
		return "restore"
	case CauseStart:
		return "start"
	case CauseStop:
		return "stop"
	}
	return "unknown"
}

// Change is delivered to observers after every state transition.
type Change struct {
	Value   int64
	Running bool
	Cause   Cause
}

// Options configures a Timer.
type Options struct {
	Interval time.Duration
	Policy   ResetPolicy
	Clock    clock.Clock
}

// handle is the single periodic task. Ticks delivered to a handle that is no
// longer current are dropped.
type handle struct {
	ticker *clock.Ticker
	stop   chan struct{}
}

// Timer is safe for concurrent use.
type Timer struct {
	clock    clock.Clock
	interval time.Duration
	policy   ResetPolicy

	mu        sync.Mutex
	value     int64
	current   *handle
	wasReset  bool
	restored  bool
	observers []func(Change)
}

// New returns a stopped timer at zero.
func New(opts Options) *Timer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Policy == "" {
		opts.Policy = ResetStop
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Timer{
		clock:    opts.Clock,
		interval: opts.Interval,
		policy:   opts.Policy,
	}
}

// OnChange registers fn to be called after every mutation, in mutation order.
// fn runs with the timer locked and must not block or call back into the
// timer.
func (t *Timer) OnChange(fn func(Change)) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Value returns the elapsed seconds.
func (t *Timer) Value() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// State returns the value and running flag read together.
func (t *Timer) State() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.current != nil
}

// Running reports whether a periodic task is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// Policy returns the configured reset policy.
func (t *Timer) Policy() ResetPolicy { return t.policy }

// Start begins ticking. It is a no-op if the timer is already running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return
	}
	t.startLocked()
	t.notifyLocked(CauseStart)
}

// Stop cancels the periodic task. It is a no-op on a stopped timer.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return
	}
	t.stopLocked()
	t.notifyLocked(CauseStop)
}

// Reset sets the counter to zero and applies the reset policy.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.value = 0
	t.wasReset = true
	if t.policy == ResetContinue {
		t.startLocked()
	}
	t.notifyLocked(CauseReset)
}

// Restore adds a persisted value to whatever has been counted so far and
// reports whether it was applied. Only the first call has any effect, and the
// value is discarded if Reset ran first. Observers see a CauseRestore change
// on that first call either way.
func (t *Timer) Restore(seconds int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.restored {
		return false
	}
	t.restored = true

	applied := !t.wasReset && seconds > 0
	if applied {
		t.value += seconds
	}
	t.notifyLocked(CauseRestore)
	return applied
}

func (t *Timer) startLocked() {
	h := &handle{
		ticker: t.clock.Ticker(t.interval),
		stop:   make(chan struct{}),
	}
	t.current = h
	go t.run(h)
}

func (t *Timer) stopLocked() {
	if t.current == nil {
		return
	}
	close(t.current.stop)
	t.current = nil
}

func (t *Timer) run(h *handle) {
	defer h.ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-h.ticker.C:
			if !t.tick(h) {
				return
			}
		}
	}
}

func (t *Timer) tick(h *handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != h {
		return false
	}
	t.value++
	t.notifyLocked(CauseTick)
	return true
}

func (t *Timer) notifyLocked(cause Cause) {
	c := Change{Value: t.value, Running: t.current != nil, Cause: cause}
	for _, fn := range t.observers {
		fn(c)
	}
}
