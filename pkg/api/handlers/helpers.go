package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/marmos91/dittosession/internal/logger"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// decodeJSONBody decodes a JSON request body into v. On failure a 400 is
// written and false returned.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeSessionError maps a session store error to a problem response.
// Unexpected failures are logged and reported without their cause.
func writeSessionError(w http.ResponseWriter, r *http.Request, id string, err error) {
	code := sesserrors.CodeOf(err)
	status, ok := storeStatus[code]
	if !ok {
		logger.ErrorCtx(r.Context(), "Session request failed",
			logger.KeySessionID, id,
			logger.KeyErrorCode, code.String(),
			logger.KeyError, err.Error())
		writeProblem(w, r, http.StatusInternalServerError, "Session store error")
		return
	}
	writeProblemDoc(w, Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Error(),
		Instance: r.URL.Path,
		Code:     code.String(),
	})
}
