package postgres

import (
	"context"
	"errors"
	"time"

	domain "lumina/backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists users in PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, first_name, last_name, age, password_hash,
password_reset_token_hash, password_reset_token_exp, created_at, updated_at`

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
INSERT INTO users (id, email, first_name, last_name, age, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Age,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByValidResetTokenHash finds the user holding an unexpired reset with tokenHash.
func (r *UserRepository) GetByValidResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
WHERE password_reset_token_hash = $1 AND password_reset_token_exp > $2`
	return r.getOne(ctx, query, tokenHash, now)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Update modifies the profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
UPDATE users
SET email = $2, first_name = $3, last_name = $4, age = $5, updated_at = $6
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Age,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes a user by id.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdatePassword updates the stored password hash for a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET password_hash = $2, updated_at = $3
WHERE id = $1
`
	return r.execOne(ctx, query, id, passwordHash, updatedAt)
}

// SetResetToken stores a pending reset, replacing any previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id string, reset domain.PasswordReset) error {
	const query = `
UPDATE users
SET password_reset_token_hash = $2, password_reset_token_exp = $3
WHERE id = $1
`
	return r.execOne(ctx, query, id, reset.TokenHash, reset.ExpiresAt)
}

// ClearResetToken removes the pending reset of a user.
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
UPDATE users
SET password_reset_token_hash = NULL, password_reset_token_exp = NULL
WHERE id = $1
`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		resetHash *string
		resetExp  *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Age,
		&u.PasswordHash,
		&resetHash,
		&resetExp,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.PendingReset = pendingReset(resetHash, resetExp)
	return &u, nil
}

// pendingReset treats a half-populated reset pair as no reset at all.
func pendingReset(hash *string, exp *time.Time) *domain.PasswordReset {
	if hash == nil || exp == nil || *hash == "" {
		return nil
	}
	return &domain.PasswordReset{TokenHash: *hash, ExpiresAt: *exp}
}
