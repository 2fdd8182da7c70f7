// Package ops serves the health and metrics endpoints while a run executes.
package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server is the optional ops HTTP listener
type Server struct {
	addr     string
	registry *prometheus.Registry
	started  time.Time
}

// NewServer creates an ops server bound to addr
func NewServer(addr string, registry *prometheus.Registry) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		started:  time.Now(),
	}
}

// Handler builds the ops route table
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return router
}

// Start serves in the background; errors are logged, never fatal for the
// simulation itself
func (s *Server) Start() {
	router := s.Handler()

	go func() {
		log.Info().Str("addr", s.addr).Msg("Ops listener starting")
		if err := http.ListenAndServe(s.addr, router); err != nil {
			log.Error().Err(err).Msg("Ops listener stopped")
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}
