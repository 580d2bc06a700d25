package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	h := newHarness(t)

	user, err := h.users.Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    "alice@example.com",
		Password: "correct-horse",
		Bio:      "gopher",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsActive, "accounts are active by default")
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
}

func TestRegister_LimitsCountCharacters(t *testing.T) {
	h := newHarness(t)

	// 50 Cyrillic letters are 100 bytes
	user, err := h.users.Register(context.Background(), RegisterInput{
		Username: strings.Repeat("я", MaxUsernameLength),
		Email:    "wide@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("я", MaxUsernameLength), user.Username)
}

func TestRegister_Rejects(t *testing.T) {
	h := newHarness(t)
	h.register(t, "taken")

	tests := []struct {
		name      string
		in        RegisterInput
		wantField string
	}{
		{"duplicate email", RegisterInput{Username: "new", Email: "taken@example.com", Password: "longenough"}, "email"},
		{"duplicate username", RegisterInput{Username: "taken", Email: "new@example.com", Password: "longenough"}, "username"},
		{"short password", RegisterInput{Username: "new", Email: "new@example.com", Password: "short"}, "password"},
		{"password over bcrypt limit", RegisterInput{Username: "new", Email: "new@example.com", Password: strings.Repeat("p", 73)}, "password"},
		{"missing username", RegisterInput{Username: "  ", Email: "new@example.com", Password: "longenough"}, "username"},
		{"missing email", RegisterInput{Username: "new", Password: "longenough"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.users.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestRegister_Inactive(t *testing.T) {
	h := newHarness(t)

	user, err := h.users.Register(context.Background(), RegisterInput{
		Username: "dormant",
		Email:    "dormant@example.com",
		Password: "longenough",
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

// =========================================================================
// UPDATE ME
// =========================================================================

func TestUpdateMe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.register(t, "before")

	updated, err := h.users.UpdateMe(ctx, user, UpdateUserInput{
		Username: ptr("after"),
		Bio:      ptr("new bio"),
		Password: ptr("brand-new-password"),
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Username)
	assert.Equal(t, "new bio", updated.Bio)
	assert.Equal(t, "before@example.com", updated.Email, "unset fields are unchanged")

	// the new password works, the old one does not
	_, err = h.auth.Login(ctx, "before@example.com", "brand-new-password")
	assert.NoError(t, err)
	_, err = h.auth.Login(ctx, "before@example.com", "password-before")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateMe_Collisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "first")
	second := h.register(t, "second")

	_, err := h.users.UpdateMe(ctx, second, UpdateUserInput{Email: ptr("first@example.com")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = h.users.UpdateMe(ctx, second, UpdateUserInput{Username: ptr("first")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	// keeping your own values is not a collision
	_, err = h.users.UpdateMe(ctx, second, UpdateUserInput{
		Username: ptr("second"),
		Email:    ptr("second@example.com"),
	})
	assert.NoError(t, err)
}

func TestUpdateMe_FailureLeavesActorUntouched(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "stable")

	_, err := h.users.UpdateMe(context.Background(), user, UpdateUserInput{
		Bio:      ptr("changed"),
		Password: ptr("short"),
	})
	require.Error(t, err)
	assert.Empty(t, user.Bio)
}

// =========================================================================
// DELETE
// =========================================================================

func TestDeleteUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.admin(t, "admin")
	victim := h.register(t, "victim")
	reader := h.register(t, "reader")

	owned := h.fragment(t, victim, "victim's fragment", true)
	readerFragment := h.fragment(t, reader, "reader's fragment", true)
	_, err := h.likes.Like(ctx, victim, readerFragment.ID)
	require.NoError(t, err)

	require.NoError(t, h.users.Delete(ctx, admin, victim.ID))

	_, err = h.users.GetByID(ctx, victim.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = h.fragments.Get(ctx, model.Anonymous(), owned.ID, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound, "owned fragments are deleted with the user")

	detail, err := h.fragments.Get(ctx, model.Anonymous(), readerFragment.ID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, detail.LikesCount, "the deleted user's likes are gone")
}

func TestDeleteUser_Rejects(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t, "admin")

	err := h.users.Delete(context.Background(), admin, admin.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation, "self-deletion is a bad request")

	err = h.users.Delete(context.Background(), admin, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.register(t, "alice")

	_, err := h.users.Register(ctx, RegisterInput{
		Username: "dormant", Email: "dormant@example.com", Password: "longenough", IsActive: ptr(false),
	})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		tok, err := h.auth.Login(ctx, "alice@example.com", "password-alice")
		require.NoError(t, err)
		assert.Equal(t, "bearer", tok.TokenType)
		assert.Equal(t, int64(30*60), tok.ExpiresIn)

		subject, err := h.tokens.Validate(tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, subject)
	})

	tests := []struct {
		name        string
		email, pass string
		wantMessage string
	}{
		{"wrong password", "alice@example.com", "nope-nope", "incorrect email or password"},
		{"unknown email", "ghost@example.com", "password-alice", "incorrect email or password"},
		{"empty", "", "", "incorrect email or password"},
		{"inactive", "dormant@example.com", "longenough", "inactive account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Login(ctx, tt.email, tt.pass)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantMessage, apperror.PublicMessage(err))
		})
	}
}

// failingUsers wraps a real user store and fails lookups by email.
type failingUsers struct {
	repository.UserRepository
	err error
}

func (f failingUsers) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, f.err
}

func TestLogin_StoreFailureIsNotABadRequest(t *testing.T) {
	h := newHarness(t)
	svc := NewAuthService(failingUsers{UserRepository: h.db.Users(), err: assert.AnError},
		h.tokens, nil, discardLogger())

	_, err := svc.Login(context.Background(), "a@example.com", "whatever")
	require.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, apperror.ErrValidation)
}
