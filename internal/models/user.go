package models

// User is the full profile projection the server returns for a user.
// The client holds it read-only except for the authenticated user's own
// profile, which changes only through the explicit profile-update flow.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Identity returns the user's cache identity.
func (u User) Identity() Identity {
	return Identify(TypeUser, u.ID)
}

// Ref returns the lightweight reference form of the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
