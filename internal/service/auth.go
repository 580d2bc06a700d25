package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/repository"
)

// TokenTypeBearer is the only token type the API issues.
const TokenTypeBearer = "bearer"

// AccessToken is the login response body. ExpiresIn is in seconds.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService exchanges email + password for a bearer token.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (lookup)
//	                               ↘ PasswordService (bcrypt verify)
//	                               ↘ TokenService (JWT issue)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Login verifies the credentials and issues an access token.
//
// An unknown email and a wrong password produce the same error, so the
// endpoint cannot be used to discover which emails are registered. The
// inactive check runs only after the password matched for the same reason.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AccessToken, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.BadRequest("incorrect email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.BadRequest("incorrect email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", email, err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return nil, apperror.BadRequest("incorrect email or password")
	}
	if !user.IsActive {
		return nil, apperror.BadRequest("inactive account")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AccessToken{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}
