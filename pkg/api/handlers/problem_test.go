package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

func TestWriteSessionError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		detail string
	}{
		{"not found", sesserrors.NewNotFoundError("s1", "session"), http.StatusNotFound, "NotFound", ""},
		{"conflict", sesserrors.NewConflictError("m:s1", errors.New("modified")), http.StatusConflict, "Conflict", ""},
		{"closed", sesserrors.NewClosedError("session manager"), http.StatusServiceUnavailable, "Closed", ""},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "", "Session store error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
			w := httptest.NewRecorder()

			writeSessionError(w, req, "s1", tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))

			var p Problem
			require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, http.StatusText(tt.status), p.Title)
			assert.Equal(t, "/api/v1/sessions/s1", p.Instance)
			assert.Equal(t, tt.code, p.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, p.Detail)
			} else {
				assert.Equal(t, tt.err.Error(), p.Detail)
			}
		})
	}
}
