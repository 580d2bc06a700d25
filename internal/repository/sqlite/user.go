package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
	"github.com/sakif/fragmenthub/internal/repository"
)

var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores accounts.
type UserDB struct {
	conn *sql.DB
}

const userColumns = `id, username, email, password_hash, bio, is_active, is_admin, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Bio,
		&u.IsActive,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user, filling in ID and timestamps. A duplicate email or
// username comes back as apperror.ErrConflict naming the column.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Bio,
		user.IsActive,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err, user)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Email, err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, "id", id)
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.getOne(ctx, "email", email)
}

func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return u.getOne(ctx, "username", username)
}

// getOne looks a user up by one unique column. column is always a literal
// from this file, never user input.
func (u *UserDB) getOne(ctx context.Context, column, value string) (*model.User, error) {
	row := u.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return user, nil
}

// GetByIDs batch-loads users keyed by ID. Unknown IDs are simply absent from
// the map.
func (u *UserDB) GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := u.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: batch loading users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// Update writes every mutable column back. created_at never changes.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := u.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, password_hash = ?, bio = ?,
		     is_active = ?, is_admin = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Bio,
		user.IsActive,
		user.IsAdmin,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err, user)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	return requireAffected(result, "user", user.ID)
}

// Delete removes the user. Foreign keys take care of the rest: their
// fragments and likes go with them, their views stay as anonymous views.
func (u *UserDB) Delete(ctx context.Context, id string) error {
	result, err := u.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return requireAffected(result, "user", id)
}

// userConflict names the column SQLite complained about.
// The driver message looks like "UNIQUE constraint failed: users.email".
func userConflict(err error, user *model.User) error {
	if strings.Contains(err.Error(), "users.username") {
		return apperror.Conflict("user", user.Username)
	}
	return apperror.Conflict("user", user.Email)
}

// requireAffected turns "0 rows affected" into NotFound.
func requireAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
