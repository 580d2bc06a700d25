// Package repository defines the storage contracts the service layer depends on.
//
// The interfaces live here, away from any concrete database, so services can be
// tested against in-memory SQLite or a hand-written fake, and so the sqlite
// package can be swapped without touching business rules.
//
// Every "not found" is reported as an apperror.ErrNotFound and every uniqueness
// violation as an apperror.ErrConflict. Callers never see driver errors for
// those two cases.
package repository

import (
	"context"

	"github.com/sakif/fragmenthub/internal/model"
)

// ListOptions is offset pagination. Stores assume the values are already
// clamped by the service layer.
type ListOptions struct {
	Limit  int
	Offset int
}

// FragmentFilter is the input to the fragment query engine.
//
// Every non-empty field narrows the result (AND semantics). ViewerID drives
// both the visibility rule and the liked-by-viewer aggregate; an empty ViewerID
// means an anonymous caller.
type FragmentFilter struct {
	ViewerID       string
	IncludePrivate bool // all fragments regardless of owner; only set for admins

	AuthorID    string
	Language    string
	Tag         string
	LikedByUser string
	Search      string

	ListOptions
}

// FragmentUpdate carries the changed fields of a fragment. Tags is nil when the
// tag set is left untouched and non-nil (possibly empty) when it is replaced.
type FragmentUpdate struct {
	Fragment *model.Fragment
	Tags     *[]string
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

type TagRepository interface {
	GetOrCreate(ctx context.Context, name string) (*model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) error
	GetByID(ctx context.Context, id string) (*model.Tag, error)
	List(ctx context.Context, search string, opts ListOptions) ([]model.Tag, int, error)
	Delete(ctx context.Context, id string) error
	ForFragments(ctx context.Context, fragmentIDs []string) (map[string][]model.Tag, error)
}

type FragmentRepository interface {
	// Create inserts the fragment and attaches the named tags in one
	// transaction. Names must already be normalized.
	Create(ctx context.Context, fragment *model.Fragment, tagNames []string) error
	Update(ctx context.Context, upd FragmentUpdate) error
	// GetByID returns the fragment with its aggregates, ignoring visibility.
	GetByID(ctx context.Context, id, viewerID string) (*model.FragmentStats, error)
	List(ctx context.Context, filter FragmentFilter) ([]model.FragmentStats, int, error)
	Delete(ctx context.Context, id string) error
}

type LikeRepository interface {
	// Add reports whether a new row was written. An existing like is not an error.
	Add(ctx context.Context, fragmentID, userID string) (bool, error)
	// Remove reports whether a row was deleted.
	Remove(ctx context.Context, fragmentID, userID string) (bool, error)
}

type ViewRepository interface {
	Record(ctx context.Context, view *model.View) error
}
