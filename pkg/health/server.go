// Package health exposes liveness, readiness, and operational status over
// HTTP, alongside the Prometheus metrics endpoint.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paystream-hq/payflow/pkg/circuitbreaker"
	"github.com/paystream-hq/payflow/pkg/logger"
)

// BlockReader reports chain connectivity.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Pinger reports record store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents a health check HTTP server.
type Server struct {
	port          string
	chain         BlockReader
	records       Pinger
	breaker       *circuitbreaker.CircuitBreaker
	orchestrator  Orchestrator
	networkID     int
	metricsAPIKey string
	logger        logger.Logger
}

// NewServer creates a new health check server.
func NewServer(
	port string,
	chain BlockReader,
	records Pinger,
	breaker *circuitbreaker.CircuitBreaker,
	orchestrator Orchestrator,
	networkID int,
	metricsAPIKey string,
	log logger.Logger,
) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Server{
		port:          port,
		chain:         chain,
		records:       records,
		breaker:       breaker,
		orchestrator:  orchestrator,
		networkID:     networkID,
		metricsAPIKey: metricsAPIKey,
		logger:        log,
	}
}

// metricsAuthMiddleware checks for a valid bearer API key.
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start starts the health check server. It blocks until the listener fails.
func (s *Server) Start() {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Ready only when both the chain and the record store answer.
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.chain.BlockNumber(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Chain client not connected"))
			return
		}
		if err := s.records.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Record store not reachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"network_id": s.networkID,
		}

		if blockNumber, err := s.chain.BlockNumber(r.Context()); err == nil {
			status["latest_block"] = blockNumber
			status["chain_connected"] = true
		} else {
			status["chain_connected"] = false
		}

		status["store_connected"] = s.records.Ping(r.Context()) == nil

		circuitStatus := "closed"
		if s.breaker != nil && s.breaker.IsOpen() {
			circuitStatus = "open"
		}
		status["quote_circuit"] = circuitStatus

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			s.logger.ErrorWithComponent(logger.Health, "Error encoding status JSON: %v", err)
		}
	})

	// Circuit breaker admin control endpoint
	http.HandleFunc("/circuit/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if s.breaker == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("No circuit breaker configured"))
			return
		}
		s.breaker.Reset()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Quote circuit breaker reset"))
	})

	if s.orchestrator != nil {
		s.registerAPIHandlers(s.orchestrator)
	}

	// Expose Prometheus metrics with API key authentication
	http.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	s.logger.InfoWithComponent(logger.Health, "Starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, nil); err != nil {
		s.logger.ErrorWithComponent(logger.Health, "Health server error: %v", err)
	}
}
