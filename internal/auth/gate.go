package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
)

// UserFinder loads a user by ID. repository.UserRepository satisfies it.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Gate derives the current identity from a request. It is evaluated fresh on
// every request; nothing is cached between calls.
type Gate struct {
	tokens *TokenService
	users  UserFinder
}

func NewGate(tokens *TokenService, users UserFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Resolve runs the access state machine:
//
//	no Authorization header        → anonymous, nil
//	token invalid/expired/garbled  → Forbidden
//	user in token no longer exists → NotFound
//	user inactive                  → BadRequest "inactive account"
//	otherwise                      → authenticated identity
//
// Admin checks happen later, in RequireAdmin, because only some routes need them.
func (g *Gate) Resolve(ctx context.Context, r *http.Request) (model.Identity, error) {
	raw, present := bearerToken(r)
	if !present {
		return model.Anonymous(), nil
	}

	userID, err := g.tokens.Validate(raw)
	if err != nil {
		return model.Anonymous(), apperror.Forbidden("could not validate credentials")
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Anonymous(), apperror.NotFound("user", userID)
		}
		return model.Anonymous(), fmt.Errorf("auth: loading user %s: %w", userID, err)
	}

	if !user.IsActive {
		return model.Anonymous(), apperror.BadRequest("inactive account")
	}

	return model.Authenticated(user), nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
//
// A header that is present but not a bearer credential counts as a presented,
// invalid token rather than as anonymous, so a client with a broken header
// gets a 403 instead of silently being served the anonymous view.
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}
