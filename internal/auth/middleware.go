package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
)

// contextKey is an unexported type so no other package can read or shadow
// the identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by the auth middlewares.
// Requests that never went through them are anonymous.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// OptionalAuth resolves the caller's identity but lets anonymous requests
// through. A presented but bad token is still rejected: only the absence of
// a credential means "anonymous".
//
// Use it on public routes like GET /fragments where logged-in users see
// extra data (their own private fragments, is_liked_by_current_user).
func OptionalAuth(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := gate.Resolve(r.Context(), r)
			if err != nil {
				rejectRequest(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth is OptionalAuth plus a 401 for anonymous callers.
func RequireAuth(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := gate.Resolve(r.Context(), r)
			if err != nil {
				rejectRequest(w, r, logger, err)
				return
			}
			if id.IsAnonymous() {
				w.Header().Set("WWW-Authenticate", "Bearer")
				rejectRequest(w, r, logger, apperror.Unauthorized("not authenticated"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must be mounted after RequireAuth. Non-admins get 403.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id.IsAnonymous() {
				rejectRequest(w, r, logger, apperror.Unauthorized("not authenticated"))
				return
			}
			if !id.IsAdmin() {
				rejectRequest(w, r, logger, apperror.Forbidden("not enough privileges"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func rejectRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("auth gate failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: apperror.PublicMessage(err)})
}
