package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goodtune/streak/internal/persist"
	"github.com/goodtune/streak/internal/timer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

var _ persist.Observer = PersistObserver{}

func TestObserveChange(t *testing.T) {
	ticks := testutil.ToFloat64(TicksTotal)
	resets := testutil.ToFloat64(ResetsTotal)

	ObserveChange(timer.Change{Value: 172801, Running: true, Cause: timer.CauseTick})

	if got := testutil.ToFloat64(ElapsedSeconds); got != 172801 {
		t.Errorf("elapsed = %v, want 172801", got)
	}
	if got := testutil.ToFloat64(Days); got != 2 {
		t.Errorf("days = %v, want 2", got)
	}
	if got := testutil.ToFloat64(Running); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}
	if got := testutil.ToFloat64(TicksTotal); got != ticks+1 {
		t.Errorf("ticks = %v, want %v", got, ticks+1)
	}

	ObserveChange(timer.Change{Value: 0, Running: false, Cause: timer.CauseReset})

	if got := testutil.ToFloat64(Running); got != 0 {
		t.Errorf("running = %v, want 0", got)
	}
	if got := testutil.ToFloat64(ResetsTotal); got != resets+1 {
		t.Errorf("resets = %v, want %v", got, resets+1)
	}
}

func TestPersistObserver(t *testing.T) {
	writes := testutil.ToFloat64(PersistWritesTotal)
	failures := testutil.ToFloat64(PersistErrorsTotal.WithLabelValues(persist.OpWrite))

	var obs PersistObserver
	obs.Written()
	obs.Failed(persist.OpWrite)

	if got := testutil.ToFloat64(PersistWritesTotal); got != writes+1 {
		t.Errorf("writes = %v, want %v", got, writes+1)
	}
	if got := testutil.ToFloat64(PersistErrorsTotal.WithLabelValues(persist.OpWrite)); got != failures+1 {
		t.Errorf("write errors = %v, want %v", got, failures+1)
	}
}

func TestServerEndpoints(t *testing.T) {
	srv := NewServer("127.0.0.1:0", zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}

	ObserveChange(timer.Change{Value: 1, Running: true, Cause: timer.CauseTick})

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "streak_elapsed_seconds") {
		t.Fatal("metrics output missing streak_elapsed_seconds")
	}
}
