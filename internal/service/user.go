package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/auth"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 50
	MaxBioLength      = 1000
)

// RegisterInput is a new account. IsActive defaults to true when nil.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Bio      string
	IsActive *bool
}

// UpdateUserInput is a partial profile update: nil fields are left alone.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Bio      *string
	Password *string
}

type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, logger: logger}
}

// Register creates an account. Email and username must both be unused.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio", fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Bio:          strings.TrimSpace(in.Bio),
		IsActive:     active,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: registering: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// GetByID returns the user or apperror.ErrNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, strings.TrimSpace(id))
}

// UpdateMe applies a partial update to the caller's own account.
func (s *UserService) UpdateMe(ctx context.Context, actor *model.User, in UpdateUserInput) (*model.User, error) {
	// work on a copy so a failed update leaves the caller's value untouched
	user := *actor

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			if err := s.ensureUsernameFree(ctx, username); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "email must not be empty")
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}

	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > MaxBioLength {
			return nil, apperror.ValidationFailed("bio", fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
		}
		user.Bio = strings.TrimSpace(*in.Bio)
	}

	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, &user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: updating %s: %w", user.ID, err)
	}

	s.logger.Info("user updated", slog.String("userID", user.ID))
	return &user, nil
}

// SetAdmin grants or revokes admin rights. There is no HTTP route for it;
// operators use it through cmd/seed.
func (s *UserService) SetAdmin(ctx context.Context, id string, admin bool) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: setting admin on %s: %w", id, err)
	}
	s.logger.Info("admin flag changed", slog.String("userID", id), slog.Bool("admin", admin))
	return user, nil
}

// Delete removes another user's account. Admins cannot delete themselves.
// The store cascades the user's fragments and likes; their views remain,
// detached from the account.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id string) error {
	target, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return apperror.BadRequest("you cannot delete yourself")
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete user",
			slog.String("userID", target.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/user: deleting %s: %w", target.ID, err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", target.ID),
		slog.String("by", actor.ID),
	)
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.ValidationFailed("email", "a user with this email already exists")
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/user: checking email: %w", err)
	}
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return apperror.ValidationFailed("username", "a user with this username already exists")
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("service/user: checking username: %w", err)
	}
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
		}
		return "", fmt.Errorf("service/user: hashing password: %w", err)
	}
	return hash, nil
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}
