package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health monitoring. Other handlers can
// be mounted on the same listener with Handle.
type Server struct {
	monitor *Monitor
	mux     *http.ServeMux
	server  *http.Server
}

// NewServer creates a new health server.
func NewServer(monitor *Monitor, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor: monitor,
		mux:     mux,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.HandleFunc("GET /notification", s.handleNotification)
	mux.HandleFunc("DELETE /notification", s.handleDismiss)
	mux.HandleFunc("POST /connectivity/ack", s.handleAcknowledge)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handle registers handler for pattern. Call it before Start.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler exposes the routes, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth())
}

func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	n, ok := s.monitor.notifications.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.monitor.notifications.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.monitor.connectivity.Acknowledge()
	writeJSON(w, http.StatusOK, s.monitor.connectivity.State())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
