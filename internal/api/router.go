package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency probe on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Put("/auth/password", s.handleChangePassword)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListOwnDevices)
				r.Post("/", s.handleAddDevice)
				r.Get("/all", s.handleListAllDevices)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", s.handleUpdateDevice)
					r.Delete("/", s.handleDeleteDevice)
					r.Post("/data", s.handleSubmitData)
					r.Get("/data", s.handleListData)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}/role", s.handleChangeRole)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth reports version, uptime and the state of each dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"components":     components,
	})
}
