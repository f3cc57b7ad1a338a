package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/api/auth"
	"github.com/marmos91/dittosession/pkg/api/handlers"
	apimw "github.com/marmos91/dittosession/pkg/api/middleware"
	"github.com/marmos91/dittosession/pkg/metrics"
	"github.com/marmos91/dittosession/pkg/session"
)

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Backend healthcheck
//   - GET /metrics - Prometheus metrics (404 when metrics are disabled)
//   - POST /api/v1/auth/login - Admin login (only when JWT is configured)
//   - GET /api/v1/sessions - Stored and locally active session ids
//   - POST /api/v1/sessions/purge - Remove expired sessions now
//   - GET /api/v1/sessions/{id} - Stored state of one session
//   - DELETE /api/v1/sessions/{id} - Invalidate one session
//
// jwtService may be nil, in which case /api/v1 is unauthenticated.
func NewRouter(config APIConfig, manager *session.Manager, jwtService *auth.JWTService) http.Handler {
	config.ApplyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(config.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(manager.Backend(), func() int {
		return len(manager.ActiveSessions())
	})
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Handle("/metrics", metrics.Handler())

	sessionHandler := handlers.NewSessionHandler(manager)

	r.Route("/api/v1", func(r chi.Router) {
		if jwtService != nil {
			authHandler := handlers.NewAuthHandler(config.Admin.Username, config.Admin.PasswordHash, jwtService)
			r.Post("/auth/login", authHandler.Login)
		}

		r.Group(func(r chi.Router) {
			if jwtService != nil {
				r.Use(apimw.JWTAuth(jwtService))
				r.Use(apimw.RequireAdmin())
			}
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/purge", sessionHandler.Purge)
				r.Get("/{id}", sessionHandler.Get)
				r.Delete("/{id}", sessionHandler.Delete)
			})
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyClientIP, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, time.Since(start).Milliseconds(),
		)
	})
}
