// Package handlers provides HTTP handlers for the admin API.
package handlers

import (
	"encoding/json"
	"net/http"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
)

// ContentTypeProblemJSON is the media type of error responses (RFC 7807).
const ContentTypeProblemJSON = "application/problem+json"

// Problem is an RFC 7807 error document. Code carries the session store
// error code when the failure came from the store.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
}

// storeStatus maps store error codes to response statuses. Codes that are
// not listed are internal errors.
var storeStatus = map[sesserrors.ErrorCode]int{
	sesserrors.ErrNotFound:         http.StatusNotFound,
	sesserrors.ErrInvalidArgument:  http.StatusBadRequest,
	sesserrors.ErrInvalidAttribute: http.StatusUnprocessableEntity,
	sesserrors.ErrConflict:         http.StatusConflict,
	sesserrors.ErrUnavailable:      http.StatusServiceUnavailable,
	sesserrors.ErrClosed:           http.StatusServiceUnavailable,
	sesserrors.ErrNotSupported:     http.StatusNotImplemented,
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemDoc(w, Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

func writeProblemDoc(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON writes data as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
