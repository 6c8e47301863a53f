package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coursemaster/coursegate"
	"github.com/coursemaster/coursegate/api"
	"github.com/coursemaster/coursegate/validation"
)

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Error: code})
}

// writeEngineError maps an Engine error to a status and error code. fallback is the message
// shown when the backend rejected the call without one.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if fields, ok := validation.AsErrors(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation_failed", Fields: fields})
		return
	}

	var rejected *coursegate.PasskeyRejectedError
	var apiErr *api.Error
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "passkey_rejected", Message: rejected.Message})
	case errors.Is(err, coursegate.ErrPasskeyRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.Is(err, coursegate.ErrNotLoggedIn):
		writeError(w, http.StatusUnauthorized, "not_logged_in")
	case errors.Is(err, coursegate.ErrNotAdmin):
		writeError(w, http.StatusForbidden, "not_admin")
	case errors.Is(err, coursegate.ErrAdminRequired):
		writeError(w, http.StatusForbidden, "admin_required")
	case errors.Is(err, coursegate.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course_not_found")
	case errors.Is(err, coursegate.ErrPasskeyUnavailable), errors.Is(err, coursegate.ErrCredentialStore):
		s.logger.Error("coursegate: request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		writeJSON(w, status, errorBody{Error: "backend_rejected", Message: api.Message(err, fallback)})
	case errors.Is(err, api.ErrTransport):
		s.logger.Warn("coursegate: backend unreachable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "backend_unreachable", Message: fallback})
	default:
		s.logger.Error("coursegate: request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: fallback})
	}
}
