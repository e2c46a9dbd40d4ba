package auth

import "time"

// TokenManager abstracts session token issuance and verification.
type TokenManager interface {
	Generate(userID string) (string, error)
	Validate(token string) (string, error)
}

// ResetTokenManager abstracts password reset token handling.
type ResetTokenManager interface {
	Issue() (raw string, hash string, expiresAt time.Time, err error)
	Hash(raw string) string
	Validate(raw, storedHash string, storedExpiry time.Time) bool
}
