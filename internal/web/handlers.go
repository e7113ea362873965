package web

import (
	"bytes"
	"net/http"
)

// handleIndex renders the widget page with the current snapshot.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", newPageData(s.counter.Snapshot())); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render index template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.counter.Snapshot())
}

// handleStart is the "Iniciar" button. Starting a running timer is a no-op.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	snap := s.counter.Start()
	s.logger.Debug().Int64("seconds", snap.Seconds).Msg("Timer started")
	writeJSON(w, http.StatusOK, snap)
}

// handleReset is the "Resetar" button.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	before := s.counter.Snapshot()
	snap := s.counter.Reset()
	s.logger.Info().Int64("previous_seconds", before.Seconds).Msg("Timer reset")
	writeJSON(w, http.StatusOK, snap)
}

// handlePreflight answers OPTIONS on the action routes without touching the
// counter. CORSMiddleware adds the allow headers when origins are configured.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storage := "ok"
	if !s.counter.StoreAvailable() {
		storage = "unavailable"
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Storage: storage})
}
