// Package memory holds process-local repositories used by tests and by the
// "memory" store driver.
package memory

import (
	"context"
	"sync"
	"time"

	domain "lumina/backend/internal/domain/auth"
)

// UserRepository keeps users in a map guarded by a mutex.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewUserRepository returns an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// Create inserts a new user record.
func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailExists
	}
	r.byID[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// Update writes the profile fields and email of user.
func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.Email != current.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return domain.ErrEmailExists
		}
		delete(r.byEmail, current.Email)
		r.byEmail[user.Email] = user.ID
	}
	current.Email = user.Email
	current.FirstName = user.FirstName
	current.LastName = user.LastName
	current.Age = user.Age
	current.UpdatedAt = user.UpdatedAt
	return nil
}

// Delete removes a user by id.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

// UpdatePassword overwrites the stored password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

// SetResetToken replaces the pending reset.
func (r *UserRepository) SetResetToken(_ context.Context, id string, reset domain.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PendingReset = &reset
	return nil
}

// ClearResetToken drops the pending reset.
func (r *UserRepository) ClearResetToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PendingReset = nil
	return nil
}

// GetByValidResetTokenHash finds the user holding an unexpired reset with tokenHash.
func (r *UserRepository) GetByValidResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.PendingReset != nil && u.PendingReset.TokenHash == tokenHash && u.PendingReset.ActiveAt(now) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.PendingReset != nil {
		reset := *u.PendingReset
		c.PendingReset = &reset
	}
	return &c
}
