package auth

import "context"

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Recorder receives the outcome of each auth flow.
// Result values are short codes such as "success" or an error code.
type Recorder interface {
	RecordAuthEvent(flow, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}
