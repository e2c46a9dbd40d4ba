package auth

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for auth users.
//
// Every method is atomic with respect to a single record. Lookups return
// ErrUserNotFound when nothing matches; infrastructure failures are returned
// as-is and mapped by callers with StoreUnavailable.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error

	// SetResetToken replaces any pending reset on the user.
	SetResetToken(ctx context.Context, id string, reset PasswordReset) error
	ClearResetToken(ctx context.Context, id string) error
	// GetByValidResetTokenHash finds the user whose pending reset has the
	// given hash and has not expired at now.
	GetByValidResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*User, error)
}
