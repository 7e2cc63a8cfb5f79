package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobproxy-engine/internal/credential"
	"jobproxy-engine/internal/upstream"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeCoreError maps the core error taxonomy onto HTTP statuses: login
// trouble reads as service-unavailable, listing trouble as bad-gateway.
func writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *upstream.AuthError
	switch {
	case errors.As(err, &authErr):
		WriteError(w, r, http.StatusServiceUnavailable, "auth_failed", authErr.Message)
	case errors.Is(err, credential.ErrCredentialExpired):
		WriteError(w, r, http.StatusServiceUnavailable, "credential_expired", err.Error())
	default:
		var ue *upstream.UpstreamError
		if errors.As(err, &ue) {
			WriteError(w, r, http.StatusBadGateway, "upstream_unavailable", ue.Error())
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
