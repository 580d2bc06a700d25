package model

import "time"

// Like records that a user liked a fragment. (FragmentID, UserID) is unique.
type Like struct {
	ID         string    `json:"id"`
	FragmentID string    `json:"fragment_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// View is one row of the append-only view log. Every detail read appends a
// row; repeated views by the same viewer are not deduplicated.
type View struct {
	ID         string
	FragmentID string
	UserID     *string // nil for anonymous viewers
	IPAddress  string  // may be empty
	CreatedAt  time.Time
}
