package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const (
	// ResetTokenBytes is the entropy of a reset token before hex encoding.
	ResetTokenBytes = 32
	// ResetTokenTTL bounds how long an emailed reset link works.
	ResetTokenTTL = 60 * time.Minute
)

// ResetTokenManager issues single-use password reset tokens.
// Only HashResetToken(raw) is meant to be stored.
type ResetTokenManager struct {
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewResetTokenManager returns a manager using ResetTokenTTL.
func NewResetTokenManager() *ResetTokenManager {
	return &ResetTokenManager{
		ttl:     ResetTokenTTL,
		nowFunc: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (m *ResetTokenManager) WithClock(now func() time.Time) *ResetTokenManager {
	m.nowFunc = now
	return m
}

// Issue generates a raw token, its hash and its expiry.
func (m *ResetTokenManager) Issue() (string, string, time.Time, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", time.Time{}, err
	}
	raw := hex.EncodeToString(buf)
	return raw, HashResetToken(raw), m.nowFunc().UTC().Add(m.ttl), nil
}

// Hash returns the storage form of raw.
func (m *ResetTokenManager) Hash(raw string) string {
	return HashResetToken(raw)
}

// Validate reports whether raw hashes to storedHash and storedExpiry is
// still in the future.
func (m *ResetTokenManager) Validate(raw, storedHash string, storedExpiry time.Time) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	computed := HashResetToken(raw)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) != 1 {
		return false
	}
	return m.nowFunc().Before(storedExpiry)
}

// HashResetToken is hex(SHA-256(raw)).
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
