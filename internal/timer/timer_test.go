package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestTimer(t *testing.T, policy ResetPolicy) (*Timer, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	tm := New(Options{Interval: time.Second, Policy: policy, Clock: mock})
	t.Cleanup(tm.Stop)
	return tm, mock
}

// advance moves the mock clock one interval at a time, waiting for each tick
// to land before the next.
func advance(t *testing.T, tm *Timer, mock *clock.Mock, ticks int) {
	t.Helper()

	for i := 0; i < ticks; i++ {
		want := tm.Value() + 1
		mock.Add(time.Second)
		waitForValue(t, tm, want)
	}
}

func waitForValue(t *testing.T, tm *Timer, want int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tm.Value() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for value %d, have %d", want, tm.Value())
}

func TestStartTicks(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	tm.Start()
	if !tm.Running() {
		t.Fatal("expected running after Start")
	}

	advance(t, tm, mock, 3)
	if got := tm.Value(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestStartTwiceKeepsSingleTask(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	tm.Start()
	tm.Start()

	advance(t, tm, mock, 5)

	// A second task would have pushed the value past 5.
	time.Sleep(20 * time.Millisecond)
	if got := tm.Value(); got != 5 {
		t.Fatalf("expected exactly 5 after 5 ticks, got %d", got)
	}
}

func TestConcurrentStart(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Start()
		}()
	}
	wg.Wait()

	advance(t, tm, mock, 2)
	time.Sleep(20 * time.Millisecond)
	if got := tm.Value(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestStopIgnoresLaterTicks(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	tm.Start()
	advance(t, tm, mock, 2)
	tm.Stop()
	tm.Stop()

	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	if tm.Running() {
		t.Fatal("expected stopped")
	}
	if got := tm.Value(); got != 2 {
		t.Fatalf("expected value to stay at 2, got %d", got)
	}
}

func TestResetPolicies(t *testing.T) {
	tests := []struct {
		policy      ResetPolicy
		wantRunning bool
	}{
		{ResetStop, false},
		{ResetContinue, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tm, mock := newTestTimer(t, tt.policy)

			tm.Start()
			advance(t, tm, mock, 3)
			tm.Reset()

			if got := tm.Value(); got != 0 {
				t.Fatalf("expected 0 after reset, got %d", got)
			}
			if tm.Running() != tt.wantRunning {
				t.Fatalf("expected running=%v after reset", tt.wantRunning)
			}

			if tt.wantRunning {
				advance(t, tm, mock, 1)
				if got := tm.Value(); got != 1 {
					t.Fatalf("expected 1 after one tick, got %d", got)
				}
				return
			}

			mock.Add(3 * time.Second)
			time.Sleep(20 * time.Millisecond)
			if got := tm.Value(); got != 0 {
				t.Fatalf("expected stopped timer to stay at 0, got %d", got)
			}

			tm.Start()
			advance(t, tm, mock, 1)
			if got := tm.Value(); got != 1 {
				t.Fatalf("expected 1 after restart, got %d", got)
			}
		})
	}
}

func TestResetWhenStopped(t *testing.T) {
	tm, _ := newTestTimer(t, ResetStop)

	tm.Reset()
	if tm.Value() != 0 || tm.Running() {
		t.Fatal("reset of a fresh timer should leave it stopped at 0")
	}
}

func TestRestore(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	tm.Start()
	advance(t, tm, mock, 2)

	if !tm.Restore(42) {
		t.Fatal("expected first restore to apply")
	}
	if got := tm.Value(); got != 44 {
		t.Fatalf("expected 44, got %d", got)
	}

	if tm.Restore(100) {
		t.Fatal("second restore must not apply")
	}
	if got := tm.Value(); got != 44 {
		t.Fatalf("expected 44 after second restore, got %d", got)
	}
}

func TestRestoreAfterResetIsDiscarded(t *testing.T) {
	tm, _ := newTestTimer(t, ResetStop)

	tm.Start()
	tm.Reset()

	if tm.Restore(42) {
		t.Fatal("restore after reset must not apply")
	}
	if got := tm.Value(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestOnChangeOrder(t *testing.T) {
	tm, mock := newTestTimer(t, ResetStop)

	var (
		mu     sync.Mutex
		causes []Cause
		values []int64
	)
	tm.OnChange(func(c Change) {
		mu.Lock()
		causes = append(causes, c.Cause)
		values = append(values, c.Value)
		mu.Unlock()
	})

	tm.Start()
	advance(t, tm, mock, 2)
	tm.Restore(10)
	tm.Reset()

	mu.Lock()
	defer mu.Unlock()

	wantCauses := []Cause{CauseStart, CauseTick, CauseTick, CauseRestore, CauseReset}
	wantValues := []int64{0, 1, 2, 12, 0}
	if len(causes) != len(wantCauses) {
		t.Fatalf("expected %d changes, got %d (%v)", len(wantCauses), len(causes), causes)
	}
	for i := range wantCauses {
		if causes[i] != wantCauses[i] || values[i] != wantValues[i] {
			t.Errorf("change %d: got %s/%d, want %s/%d", i, causes[i], values[i], wantCauses[i], wantValues[i])
		}
	}
}

func TestParseResetPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ResetPolicy
		wantErr bool
	}{
		{"stop", ResetStop, false},
		{"continue", ResetContinue, false},
		{"", ResetStop, false},
		{"pause", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResetPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResetPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseResetPolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
