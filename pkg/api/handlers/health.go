package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/dittosession/pkg/store"
)

// HealthHandler handles the unauthenticated health endpoints.
type HealthHandler struct {
	backend store.Backend
	active  func() int
}

// NewHealthHandler creates a new health handler. backend may be nil, in
// which case readiness reports unhealthy. active reports the number of
// locally open sessions and may be nil.
func NewHealthHandler(backend store.Backend, active func() int) *HealthHandler {
	return &HealthHandler{backend: backend, active: active}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "dsess",
	}))
}

// BackendHealth is the readiness payload.
type BackendHealth struct {
	Backend        string `json:"backend"`
	Transactional  bool   `json:"transactional"`
	Latency        string `json:"latency"`
	ActiveSessions int    `json:"active_sessions"`
}

// Readiness handles GET /health/ready. It returns 503 when the backend
// healthcheck fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("backend not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.backend.Healthcheck(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	health := BackendHealth{
		Backend:       h.backend.Name(),
		Transactional: h.backend.Transactional(),
		Latency:       time.Since(start).String(),
	}
	if h.active != nil {
		health.ActiveSessions = h.active()
	}
	WriteJSON(w, http.StatusOK, healthyResponse(health))
}
