package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
)

// fakeUsers is an in-memory UserFinder.
type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func newTestGate(t *testing.T) (*Gate, *TokenService, *fakeUsers) {
	t.Helper()
	ts := newTestTokenService(t)
	users := &fakeUsers{users: map[string]*model.User{
		"active":   {ID: "active", Username: "alice", IsActive: true},
		"admin":    {ID: "admin", Username: "root", IsActive: true, IsAdmin: true},
		"inactive": {ID: "inactive", Username: "ghost", IsActive: false},
	}}
	return NewGate(ts, users), ts, users
}

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestGateResolve(t *testing.T) {
	gate, ts, _ := newTestGate(t)

	activeTok, _ := ts.Issue("active")
	inactiveTok, _ := ts.Issue("inactive")
	deletedTok, _ := ts.Issue("deleted-user")
	expiredTok, _ := ts.IssueWithTTL("active", -time.Minute)

	tests := []struct {
		name     string
		req      *http.Request
		wantErr  error
		wantAnon bool
		wantUser string
	}{
		{name: "no header is anonymous", req: requestWithToken(""), wantAnon: true},
		{name: "valid token", req: requestWithToken(activeTok), wantUser: "active"},
		{name: "expired token", req: requestWithToken(expiredTok), wantErr: apperror.ErrForbidden},
		{name: "garbage token", req: requestWithToken("abc.def.ghi"), wantErr: apperror.ErrForbidden},
		{name: "deleted user", req: requestWithToken(deletedTok), wantErr: apperror.ErrNotFound},
		{name: "inactive user", req: requestWithToken(inactiveTok), wantErr: apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := gate.Resolve(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAnon, id.IsAnonymous())
			if tt.wantUser != "" {
				uid, _ := id.UserID()
				assert.Equal(t, tt.wantUser, uid)
			}
		})
	}
}

func TestGateResolve_NonBearerHeaderIsForbidden(t *testing.T) {
	gate, _, _ := newTestGate(t)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := gate.Resolve(context.Background(), r)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestGateResolve_InactiveMessage(t *testing.T) {
	gate, ts, _ := newTestGate(t)
	tok, _ := ts.Issue("inactive")

	_, err := gate.Resolve(context.Background(), requestWithToken(tok))
	require.Error(t, err)
	assert.Equal(t, "inactive account", apperror.PublicMessage(err))
}

func TestGateResolve_StoreFailureIsInternal(t *testing.T) {
	gate, ts, users := newTestGate(t)
	users.err = errors.New("database is locked")
	tok, _ := ts.Issue("active")

	_, err := gate.Resolve(context.Background(), requestWithToken(tok))
	require.Error(t, err)
	status, _ := apperror.HTTPStatus(err)
	assert.Equal(t, http.StatusInternalServerError, status)
}

// =========================================================================
// MIDDLEWARE
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoIdentity writes "anon" or the resolved user ID.
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if uid, ok := id.UserID(); ok {
		_, _ = w.Write([]byte(uid))
		return
	}
	_, _ = w.Write([]byte("anon"))
})

func TestMiddlewares(t *testing.T) {
	gate, ts, _ := newTestGate(t)
	logger := discardLogger()

	userTok, _ := ts.Issue("active")
	adminTok, _ := ts.Issue("admin")
	inactiveTok, _ := ts.Issue("inactive")

	optional := OptionalAuth(gate, logger)(echoIdentity)
	required := RequireAuth(gate, logger)(echoIdentity)
	admin := RequireAuth(gate, logger)(RequireAdmin(logger)(echoIdentity))

	tests := []struct {
		name       string
		handler    http.Handler
		token      string
		wantStatus int
		wantBody   string
	}{
		{"optional anonymous", optional, "", http.StatusOK, "anon"},
		{"optional user", optional, userTok, http.StatusOK, "active"},
		{"optional bad token", optional, "nope", http.StatusForbidden, ""},
		{"required anonymous", required, "", http.StatusUnauthorized, ""},
		{"required user", required, userTok, http.StatusOK, "active"},
		{"required inactive", required, inactiveTok, http.StatusBadRequest, ""},
		{"admin as user", admin, userTok, http.StatusForbidden, ""},
		{"admin as admin", admin, adminTok, http.StatusOK, "admin"},
		{"admin anonymous", admin, "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, requestWithToken(tt.token))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}
