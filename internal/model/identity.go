package model

// Identity is who is making a request: either anonymous or a resolved, active
// user. The zero value is anonymous.
//
// Call sites get the user through User(), which forces them to handle the
// anonymous case instead of dereferencing a possibly-nil pointer.
type Identity struct {
	user *User
}

// Anonymous returns the identity of a caller that presented no credential.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated returns the identity of a resolved user. A nil user yields
// an anonymous identity.
func Authenticated(u *User) Identity {
	return Identity{user: u}
}

// User returns the resolved user and true, or nil and false when anonymous.
func (i Identity) User() (*User, bool) {
	return i.user, i.user != nil
}

// UserID returns the caller's user ID, or "" and false when anonymous.
func (i Identity) UserID() (string, bool) {
	if i.user == nil {
		return "", false
	}
	return i.user.ID, true
}

func (i Identity) IsAnonymous() bool {
	return i.user == nil
}

// IsAdmin is false for anonymous callers.
func (i Identity) IsAdmin() bool {
	return i.user != nil && i.user.IsAdmin
}
