package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so the API has one
// body shape for success and one for failure:
//
//   {"error": "not_found", "message": "fragment not found with id abc123"}
//   {"error": "validation_error", "message": "email is required", "field": "email"}
//
// The status code and the "error" code both come from apperror.HTTPStatus.
// Handlers never pick a status for a failure themselves; they hand the error
// over and the taxonomy decides.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/fragmenthub/internal/apperror"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable code, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // input field at fault, for validation errors
}

// writeJSON sends data with the given status.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body. Once Encode writes the
// first byte, later header changes are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already out; logging is all that is left
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err onto the taxonomy and sends it.
//
// Only 500s are logged here. NotFound, Forbidden and validation failures are
// ordinary outcomes of client input and would only add noise.
//
// Errors outside the taxonomy never leak their text: a raw driver error can
// carry SQL or file paths, so the client gets a generic message instead.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	resp := ErrorResponse{Error: code, Message: apperror.PublicMessage(err)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}
	writeJSON(w, status, resp)
}

// writeNoContent sends 204 with no body.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
