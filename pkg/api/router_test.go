package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittosession/pkg/api/auth"
	"github.com/marmos91/dittosession/pkg/api/handlers"
	"github.com/marmos91/dittosession/pkg/attributes"
	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/session"
	"github.com/marmos91/dittosession/pkg/store/memory"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := marshal.New(marshal.CBOR())
	require.NoError(t, err)
	manager, err := session.NewManager(session.Config{
		Backend:             memory.New(),
		Marshaller:          m,
		Properties:          attributes.Properties{Marshalling: true},
		MaxInactiveInterval: 30 * time.Minute,
		ExpirationInterval:  -1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func createSession(t *testing.T, manager *session.Manager, attrs map[string]any) string {
	t.Helper()
	ctx := t.Context()
	id := manager.CreateIdentifier()
	s, err := manager.CreateSession(ctx, id)
	require.NoError(t, err)
	for name, value := range attrs {
		_, err := s.Attributes().SetAttribute(ctx, name, value)
		require.NoError(t, err)
	}
	require.NoError(t, s.Close(ctx))
	return id
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSessionRoutes(t *testing.T) {
	manager := newTestManager(t)
	router := NewRouter(APIConfig{}, manager, nil)
	id := createSession(t, manager, map[string]any{"user": "alice", "cart": []string{"book"}})

	t.Run("Health", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("List", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/sessions", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp handlers.SessionListResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, []string{id}, resp.Sessions)
		assert.Empty(t, resp.Active)
	})

	t.Run("Get", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/sessions/"+id, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var info session.Info
		require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
		assert.Equal(t, id, info.ID)
		assert.False(t, info.Expired)
		require.Len(t, info.Attributes, 2)
		for _, a := range info.Attributes {
			assert.Positive(t, a.Size)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/sessions/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, handlers.ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	})

	t.Run("Purge", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/sessions/purge", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp handlers.PurgeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Zero(t, resp.Purged)
	})

	t.Run("Delete", func(t *testing.T) {
		w := do(t, router, http.MethodDelete, "/api/v1/sessions/"+id, "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, router, http.MethodGet, "/api/v1/sessions/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(t, router, http.MethodDelete, "/api/v1/sessions/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	manager := newTestManager(t)
	hash, err := auth.HashPasswordWithCost("admin-password", bcrypt.MinCost)
	require.NoError(t, err)

	config := APIConfig{
		JWT:   JWTConfig{Secret: testSecret},
		Admin: AdminConfig{Username: "admin", PasswordHash: hash},
	}
	jwtService, err := auth.NewJWTService(auth.JWTConfig{Secret: testSecret})
	require.NoError(t, err)
	router := NewRouter(config, manager, jwtService)

	t.Run("MissingToken", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/api/v1/sessions", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("HealthIsOpen", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/login", "",
			handlers.LoginRequest{Username: "admin", Password: "nope-nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("EmptyCredentials", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("LoginThenList", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/api/v1/auth/login", "",
			handlers.LoginRequest{Username: "admin", Password: "admin-password"})
		require.Equal(t, http.StatusOK, w.Code)

		var token auth.Token
		require.NoError(t, json.NewDecoder(w.Body).Decode(&token))
		require.NotEmpty(t, token.AccessToken)

		w = do(t, router, http.MethodGet, "/api/v1/sessions", token.AccessToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NonAdminToken", func(t *testing.T) {
		token, err := jwtService.GenerateToken("viewer", "viewer")
		require.NoError(t, err)

		w := do(t, router, http.MethodGet, "/api/v1/sessions", token.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestNewServerRejectsShortSecret(t *testing.T) {
	_, err := NewServer(APIConfig{JWT: JWTConfig{Secret: "short"}}, newTestManager(t))
	assert.ErrorIs(t, err, auth.ErrInvalidSecretLength)
}
