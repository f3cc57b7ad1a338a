package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/pkg/api/auth"
)

// AuthHandler handles POST /api/v1/auth/login.
type AuthHandler struct {
	username     string
	passwordHash string
	jwtService   *auth.JWTService
}

// NewAuthHandler creates a handler accepting a single account.
func NewAuthHandler(username, passwordHash string, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		username:     username,
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the admin credentials and returns an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		writeProblem(w, r, http.StatusBadRequest, "Username and password are required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passErr := auth.VerifyPassword(h.passwordHash, req.Password)
	if !userOK || passErr != nil {
		logger.WarnCtx(r.Context(), "Rejected admin login", "username", req.Username)
		writeProblem(w, r, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.jwtService.GenerateToken(h.username, auth.RoleAdmin)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	WriteJSON(w, http.StatusOK, token)
}
