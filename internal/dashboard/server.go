// Package dashboard serves the engine's status API: a JSON status endpoint,
// a health probe and the Prometheus metrics exposition.
package dashboard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/engine"
	"github.com/eddiefleurent/stamford_condor/internal/metrics"
)

// Config defines the dashboard server settings.
type Config struct {
	Port      int
	AuthToken string
}

// Server is the status HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	engine *engine.Engine
	logger *logrus.Logger
	cfg    Config
}

// NewServer wires the routes.
func NewServer(cfg Config, eng *engine.Engine, m *metrics.Metrics, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		router: chi.NewRouter(),
		engine: eng,
		logger: logger,
		cfg:    cfg,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/status", s.handleStatus)
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("port", s.cfg.Port).Info("dashboard listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authMiddleware enforces the optional bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			got := r.Header.Get("Authorization")
			want := "Bearer " + s.cfg.AuthToken
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.GetStatus()); err != nil {
		s.logger.WithError(err).Warn("failed to encode status")
	}
}
