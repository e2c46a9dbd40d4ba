package auth

import (
	"time"
)

// MinimumAge is the youngest age accepted at registration.
const MinimumAge = 18

// PasswordReset is the pending reset attached to a user.
// Only the SHA-256 hash of the emailed token is kept.
type PasswordReset struct {
	TokenHash string
	ExpiresAt time.Time
}

// ActiveAt reports whether the reset can still be redeemed at now.
func (r *PasswordReset) ActiveAt(now time.Time) bool {
	return r != nil && r.TokenHash != "" && now.Before(r.ExpiresAt)
}

// User models the authentication entity persisted in storage.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Age          int
	PasswordHash string
	PendingReset *PasswordReset
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy without credential material.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	copy.PendingReset = nil
	return &copy
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
