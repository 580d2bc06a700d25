package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/fragmenthub/internal/apperror"
	"github.com/sakif/fragmenthub/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hash",
		Bio:          "writes Go",
		IsActive:     true,
	}

	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Create fills in the generated fields on the caller's struct.
	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("Create() did not set user.UpdatedAt")
	}
}

func TestUserCreate_Duplicates(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken")

	tests := []struct {
		name string
		user *model.User
	}{
		{"same email", &model.User{Username: "other", Email: "taken@example.com", PasswordHash: "h"}},
		{"same username", &model.User{Username: "taken", Email: "other@example.com", PasswordHash: "h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.Users().Create(context.Background(), tt.user)
			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("Create() error = %v, want ErrConflict", err)
			}
		})
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserLookups(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "lookup")
	ctx := context.Background()

	byID, err := db.Users().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Username != "lookup" || !byID.IsActive || byID.IsAdmin {
		t.Errorf("GetByID() = %+v, unexpected fields", byID)
	}

	byEmail, err := db.Users().GetByEmail(ctx, "lookup@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, created.ID)
	}

	byName, err := db.Users().GetByUsername(ctx, "lookup")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername() ID = %q, want %q", byName.ID, created.ID)
	}
}

func TestUserLookups_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lookups := map[string]func() error{
		"GetByID": func() error {
			_, err := db.Users().GetByID(ctx, "nonexistent-id")
			return err
		},
		"GetByEmail": func() error {
			_, err := db.Users().GetByEmail(ctx, "nobody@example.com")
			return err
		},
		"GetByUsername": func() error {
			_, err := db.Users().GetByUsername(ctx, "nobody")
			return err
		},
	}

	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			if err := lookup(); !errors.Is(err, apperror.ErrNotFound) {
				t.Errorf("%s() error = %v, want ErrNotFound", name, err)
			}
		})
	}
}

func TestUserGetByIDs(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "alice")
	b := createTestUser(t, db, "bob")

	users, err := db.Users().GetByIDs(context.Background(), []string{a.ID, b.ID, "ghost"})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("GetByIDs() returned %d users, want 2", len(users))
	}
	if users[a.ID].Username != "alice" || users[b.ID].Username != "bob" {
		t.Errorf("GetByIDs() keyed users incorrectly: %+v", users)
	}

	empty, err := db.Users().GetByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetByIDs(nil) = %v, %v; want empty map, nil", empty, err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "before")
	originalCreatedAt := user.CreatedAt

	user.Username = "after"
	user.Bio = "new bio"
	user.IsActive = false
	if err := db.Users().Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() after Update: %v", err)
	}
	if found.Username != "after" || found.Bio != "new bio" || found.IsActive {
		t.Errorf("Update() not persisted: %+v", found)
	}
	if !found.CreatedAt.Equal(originalCreatedAt) {
		t.Errorf("Update() changed CreatedAt: got %v, want %v", found.CreatedAt, originalCreatedAt)
	}
}

func TestUserUpdate_Collision(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "first")
	second := createTestUser(t, db, "second")

	second.Email = "first@example.com"
	err := db.Users().Update(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Update() error = %v, want ErrConflict", err)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Update(context.Background(), &model.User{ID: "ghost", Username: "g", Email: "g@x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

// TestUserDelete_Cascades checks what happens to a deleted user's data:
// fragments and likes go, views stay but lose their user.
func TestUserDelete_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")

	owned := createTestFragment(t, db, author, "owned", true, "go")
	other := createTestFragment(t, db, reader, "other", true)

	if _, err := db.Likes().Add(ctx, other.ID, author.ID); err != nil {
		t.Fatalf("Add like: %v", err)
	}
	if _, err := db.Likes().Add(ctx, owned.ID, reader.ID); err != nil {
		t.Fatalf("Add like: %v", err)
	}
	if err := db.Views().Record(ctx, &model.View{FragmentID: other.ID, UserID: &author.ID}); err != nil {
		t.Fatalf("Record view: %v", err)
	}

	if err := db.Users().Delete(ctx, author.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM fragments WHERE author_id = ?`, author.ID); n != 0 {
		t.Errorf("%d fragments survived their author", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM likes`); n != 0 {
		t.Errorf("%d likes left, want 0 (author's like and likes on author's fragment)", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM views WHERE fragment_id = ? AND user_id IS NULL`, other.ID); n != 1 {
		t.Errorf("anonymized views = %d, want 1", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM fragment_tags`); n != 0 {
		t.Errorf("%d tag links left behind", n)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Delete(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}
