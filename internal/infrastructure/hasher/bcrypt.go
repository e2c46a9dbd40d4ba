// Package hasher stores passwords as bcrypt digests.
package hasher

import (
	"errors"

	domain "lumina/backend/internal/domain/auth"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for every new digest.
const Cost = 10

// Bcrypt hashes passwords with a random salt at Cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a hasher at Cost.
func NewBcrypt() *Bcrypt {
	return &Bcrypt{cost: Cost}
}

// Hash returns a fresh digest of plain. Inputs over 72 bytes are rejected
// with domain.ErrPasswordTooLong.
func (b *Bcrypt) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. A malformed digest is a mismatch.
func (b *Bcrypt) Verify(plain, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
