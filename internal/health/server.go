package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	providers map[string]StatusProvider
	server    *http.Server
}

// NewServer creates a health server reporting on the named providers.
func NewServer(providers map[string]StatusProvider, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		providers: providers,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) report() map[string]SchedulerHealth {
	report := make(map[string]SchedulerHealth, len(s.providers))
	for name, p := range s.providers {
		snap := p.Status()
		report[name] = SchedulerHealth{Name: name, Status: Evaluate(snap), Stats: snap}
	}
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := Aggregate(s.report())

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.report()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		SystemStatus SystemStatus               `json:"system_status"`
		Schedulers   map[string]SchedulerHealth `json:"schedulers"`
	}{Aggregate(report), report})
}
