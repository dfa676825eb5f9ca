// internal/httperr/mapper.go
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// errorBody is the structured failure response returned to webhook callers.
type errorBody struct {
	Error string `json:"error"`
}

// Write sends a JSON error body with the given status.
func Write(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// WriteErr converts repo/infra errors into HTTP responses.
// Keeps handlers clean by centralizing error mapping.
func WriteErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		Write(w, http.StatusNotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		Write(w, http.StatusGatewayTimeout, "request timed out")

	case errors.Is(err, context.Canceled):
		Write(w, http.StatusRequestTimeout, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		Write(w, http.StatusInternalServerError, err.Error())
	}
}

// BadRequest reports a validation failure. No mutation may have happened
// before it is sent.
func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, msg)
}

// Unauthorized reports a missing or mismatched bearer token.
func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, "unauthorized")
}

// Forbidden reports a failed signature or secret check.
func Forbidden(w http.ResponseWriter, msg string) {
	Write(w, http.StatusForbidden, msg)
}

// JSON sends a success payload.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
