package metrics

import (
	"net"
	"net/http"

	"github.com/goodtune/streak/internal/timer"
	"github.com/goodtune/streak/internal/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Counter state
	ElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streak_elapsed_seconds",
			Help: "Current value of the streak counter in seconds",
		},
	)

	Days = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streak_days",
			Help: "Whole days in the current streak",
		},
	)

	Running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "streak_running",
			Help: "1 while the streak clock is ticking",
		},
	)

	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_ticks_total",
			Help: "Total clock ticks applied to the counter",
		},
	)

	ResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_resets_total",
			Help: "Total counter resets",
		},
	)

	// Persistence
	PersistWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_persist_writes_total",
			Help: "Total successful writes of the counter to storage",
		},
	)

	PersistErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_persist_errors_total",
			Help: "Storage errors by operation",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		ElapsedSeconds,
		Days,
		Running,
		TicksTotal,
		ResetsTotal,
		PersistWritesTotal,
		PersistErrorsTotal,
	)
}

// ObserveChange updates the counter gauges from a timer change. It is safe
// to register with timer.OnChange.
func ObserveChange(c timer.Change) {
	ElapsedSeconds.Set(float64(c.Value))
	Days.Set(float64(view.Days(c.Value)))
	if c.Running {
		Running.Set(1)
	} else {
		Running.Set(0)
	}

	switch c.Cause {
	case timer.CauseTick:
		TicksTotal.Inc()
	case timer.CauseReset:
		ResetsTotal.Inc()
	}
}

// PersistObserver satisfies persist.Observer.
type PersistObserver struct{}

func (PersistObserver) Written()         { PersistWritesTotal.Inc() }
func (PersistObserver) Failed(op string) { PersistErrorsTotal.WithLabelValues(op).Inc() }

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
