// Package auth issues and validates bearer tokens, hashes passwords, and
// resolves the identity behind each request.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/login with email + password → PasswordService.Verify
//  2. TokenService.Issue signs a JWT whose subject is the user ID
//  3. The client sends it back as "Authorization: Bearer <token>"
//  4. Gate.Resolve validates the token, loads the user and checks it is active
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","exp":1234567890,"iat":...,"iss":"fragmenthub"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The secret is process-wide configuration. Rotating it invalidates every
// outstanding token; the short TTL keeps that acceptable.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fragmenthub"

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
const MinSecretLength = 16

// ErrInvalidToken is wrapped by every Validate failure: bad signature,
// malformed payload, wrong algorithm, missing subject or expiry.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService that signs with secret and issues
// tokens living for ttl.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens produced by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed access token for userID with the configured TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL creates a token with a custom lifetime. A negative ttl yields
// an already-expired token, which tests use to exercise expiry.
func (s *TokenService) IssueWithTTL(userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the user ID stored in
// its subject.
//
// jwt.WithValidMethods pins HS256, which closes the "alg: none" and
// algorithm-confusion holes; WithExpirationRequired rejects tokens that were
// minted without an expiry.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
