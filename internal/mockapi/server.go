package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sajagmathur/mlconsole/internal/config"
	"github.com/sajagmathur/mlconsole/internal/metrics"
	"github.com/sajagmathur/mlconsole/internal/ratelimit"
	"github.com/sajagmathur/mlconsole/internal/session"
)

// Server is the mock MLOps backend. It serves the same API surface the
// console client talks to, backed by in-memory state, so the console can be
// exercised end to end without real infrastructure.
type Server struct {
	data    *dataStore
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter

	// runDelay is how long simulated pipeline and schedule runs take before
	// flipping to their terminal status.
	runDelay time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRunDelay overrides the simulated run duration.
func WithRunDelay(d time.Duration) Option {
	return func(s *Server) { s.runDelay = d }
}

// NewServer creates a mock backend with seeded fixture data.
func NewServer(cfg *config.Config, m *metrics.Metrics, opts ...Option) *Server {
	s := &Server{
		data:     newDataStore(),
		metrics:  m,
		limiter:  ratelimit.New(cfg.Mock.LoginRate, cfg.Mock.LoginWindow),
		runDelay: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger)

	r.Get("/health", s.handleHealth)

	if s.metrics != nil {
		r.Get("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
		r.Get("/metrics/summary", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(loginThrottle(s.limiter, s.metrics)).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/extend", s.handleExtend)
			r.Get("/auth/me", s.handleMe)

			mountResource(r, "/projects", s.data.projects, nil)
			mountResource(r, "/pipelines", s.data.pipelines, map[string]http.HandlerFunc{
				"run": s.handlePipelineRun,
			})
			mountResource(r, "/models", s.data.models, map[string]http.HandlerFunc{
				"approve": s.handleModelApprove,
				"reject":  s.handleModelReject,
			})
			mountResource(r, "/deployments", s.data.deployments, nil)
			mountResource(r, "/monitors", s.data.monitors, map[string]http.HandlerFunc{
				"check": s.handleMonitorCheck,
			})
			mountResource(r, "/schedules", s.data.schedules, map[string]http.HandlerFunc{
				"run": s.handleScheduleRun,
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const userContextKey contextKey = "user"

// userFromContext returns the authenticated user set by authMiddleware.
func userFromContext(r *http.Request) *session.User {
	if u, ok := r.Context().Value(userContextKey).(*session.User); ok {
		return u
	}
	return nil
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
