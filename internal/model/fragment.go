package model

import "time"

// Fragment is a stored code snippet with metadata.
//
// Language is a free-text label ("go", "Python 3", ...). It is matched exactly
// when filtering and never validated against a fixed list.
type Fragment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Language    string    `json:"language"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VisibleTo reports whether the fragment may be read by the given identity
// without the admin private-inclusive mode.
func (f *Fragment) VisibleTo(id Identity) bool {
	if f.IsPublic {
		return true
	}
	userID, ok := id.UserID()
	return ok && userID == f.AuthorID
}

// FragmentStats is a fragment plus the aggregates computed by the query
// engine in the same pass.
type FragmentStats struct {
	Fragment
	LikesCount    int64
	ViewsCount    int64
	LikedByViewer bool
}

// FragmentDetail is the assembled response: fragment, author, tags and counts.
// IsLikedByCurrentUser is nil for anonymous requesters.
type FragmentDetail struct {
	Fragment
	Author               PublicUser `json:"author"`
	Tags                 []Tag      `json:"tags"`
	LikesCount           int64      `json:"likes_count"`
	ViewsCount           int64      `json:"views_count"`
	IsLikedByCurrentUser *bool      `json:"is_liked_by_current_user"`
}

// FragmentPage is one page of a fragment listing. Total counts the whole
// filtered, visible set, not just Items.
type FragmentPage struct {
	Items []FragmentDetail `json:"items"`
	Total int              `json:"total"`
}
