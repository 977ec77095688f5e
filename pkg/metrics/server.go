package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Server exposes /metrics and /healthz on a dedicated listener. It is
// only started when a metrics address is configured.
type Server struct {
	srv       *http.Server
	runID     string
	version   string
	startTime time.Time
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr, runID, version string) *Server {
	s := &Server{
		runID:     runID,
		version:   version,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", s.livenessHandler)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// Start serves until Stop is called. It blocks, so callers run it in a
// goroutine.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// livenessHandler reports that the daemon process is alive. Per-service
// health lives in the log stream and the Prometheus counters, not here.
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "alive",
		"run_id":  s.runID,
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}
