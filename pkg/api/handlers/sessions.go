package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/session"
)

// SessionService is the part of session.Manager the handlers use.
type SessionService interface {
	ListSessions(ctx context.Context) ([]string, error)
	ActiveSessions() []string
	Inspect(ctx context.Context, id string) (*session.Info, error)
	InvalidateSession(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int, error)
}

// SessionHandler serves /api/v1/sessions.
type SessionHandler struct {
	sessions SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SessionListResponse is the response body of GET /api/v1/sessions.
type SessionListResponse struct {
	Sessions []string `json:"sessions"`
	Active   []string `json:"active"`
}

// PurgeResponse is the response body of POST /api/v1/sessions/purge.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		writeSessionError(w, r, "", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	active := h.sessions.ActiveSessions()
	if active == nil {
		active = []string{}
	}
	WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: ids, Active: active})
}

// Get handles GET /api/v1/sessions/{id}. Attribute values are never
// returned, only names, ids and stored sizes.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := h.sessions.Inspect(r.Context(), id)
	if err != nil {
		writeSessionError(w, r, id, err)
		return
	}
	if info.Attributes == nil {
		info.Attributes = []session.AttributeInfo{}
	}
	WriteJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.InvalidateSession(r.Context(), id); err != nil {
		writeSessionError(w, r, id, err)
		return
	}
	logger.InfoCtx(r.Context(), "Session invalidated via API", logger.KeySessionID, id)
	w.WriteHeader(http.StatusNoContent)
}

// Purge handles POST /api/v1/sessions/purge.
func (h *SessionHandler) Purge(w http.ResponseWriter, r *http.Request) {
	purged, err := h.sessions.PurgeExpired(r.Context())
	if err != nil {
		writeSessionError(w, r, "", err)
		return
	}
	WriteJSON(w, http.StatusOK, PurgeResponse{Purged: purged})
}
