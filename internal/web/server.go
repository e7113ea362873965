package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/streak/internal/view"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

//go:embed templates static
var assets embed.FS

// Counter is the widget the server renders and drives.
type Counter interface {
	Snapshot() view.Snapshot
	Start() view.Snapshot
	Reset() view.Snapshot
	StoreAvailable() bool
}

// Config holds the web server configuration.
type Config struct {
	ListenAddr      string
	RateLimit       int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
}

// Server serves the streak page and its JSON API.
type Server struct {
	config      Config
	counter     Counter
	rateLimiter *RateLimiter
	server      *http.Server
	router      *mux.Router
	templates   *template.Template
	logger      zerolog.Logger
	listener    net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new web server.
func NewServer(cfg Config, counter Counter, logger zerolog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		config:    cfg,
		counter:   counter,
		router:    mux.NewRouter(),
		templates: tmpl,
		logger:    logger.With().Str("component", "web").Logger(),
	}

	if cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window == 0 {
			window = time.Minute
		}
		s.rateLimiter = NewRateLimiter(cfg.RateLimit, window)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(CORSMiddleware(s.config.AllowedOrigins))
	}

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/timer").Subrouter()
	api.HandleFunc("", s.handleSnapshot).Methods("GET")
	api.Handle("/start", s.limited(s.handleStart)).Methods("POST")
	api.Handle("/reset", s.limited(s.handleReset)).Methods("POST")
	api.HandleFunc("/start", s.handlePreflight).Methods("OPTIONS")
	api.HandleFunc("/reset", s.handlePreflight).Methods("OPTIONS")

	staticSub, err := fs.Sub(assets, "static")
	if err == nil {
		s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	}
}

// limited applies the rate limiter to the timer actions. Page loads and the
// once-a-second snapshot poll are not counted.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.rateLimiter == nil {
		return h
	}
	return RateLimitMiddleware(s.rateLimiter)(h)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the web server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting web server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated HTTP listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Web server error")
		}
	}()

	return nil
}

// Stop gracefully stops the web server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping web server")

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
