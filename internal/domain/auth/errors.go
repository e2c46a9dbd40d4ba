package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error so transports can pick a response status.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindValidation marks missing or malformed input.
	KindValidation
	// KindPolicy marks a password that fails the password policy.
	KindPolicy
	// KindConflict marks a uniqueness violation.
	KindConflict
	// KindUnauthorized marks bad credentials or a bad token.
	KindUnauthorized
	// KindNotFound marks a missing record outside the login/reset paths.
	KindNotFound
	// KindDependency marks an unreachable store or mail provider.
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Error is a typed failure returned by the auth core.
// Two errors are equal under errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Validation errors.
var (
	// ErrMissingFields indicates one or more required fields were not supplied.
	ErrMissingFields = &Error{Kind: KindValidation, Code: "missing_fields", Message: "missing required fields"}
	// ErrUnderage rejects registrations and profile updates with age below MinimumAge.
	ErrUnderage = &Error{Kind: KindValidation, Code: "underage", Message: "you must be at least 18 years old"}
	// ErrInvalidEmail rejects addresses that cannot be parsed.
	ErrInvalidEmail = &Error{Kind: KindValidation, Code: "invalid_email", Message: "email address is invalid"}
	// ErrEmailRequired is returned by the forgot-password flow when no email was sent.
	ErrEmailRequired = &Error{Kind: KindValidation, Code: "email_required", Message: "email is required"}
	// ErrPasswordMismatch indicates newPassword and confirmPassword differ.
	ErrPasswordMismatch = &Error{Kind: KindValidation, Code: "password_mismatch", Message: "passwords do not match"}
	// ErrPasswordUnchanged indicates the new password matches the current one.
	ErrPasswordUnchanged = &Error{Kind: KindValidation, Code: "password_unchanged", Message: "new password must be different from current password"}
)

// Password policy violations.
var (
	ErrPasswordRequired  = &Error{Kind: KindPolicy, Code: "password_required", Message: "password is required"}
	ErrPasswordTooShort  = &Error{Kind: KindPolicy, Code: "password_too_short", Message: "password must be at least 8 characters long"}
	ErrPasswordTooCommon = &Error{Kind: KindPolicy, Code: "password_too_common", Message: "password is too common, choose a less predictable one"}
	ErrPasswordTooWeak   = &Error{Kind: KindPolicy, Code: "password_too_weak", Message: "password must contain at least one uppercase letter, one number and one symbol"}
	ErrPasswordTooLong   = &Error{Kind: KindPolicy, Code: "password_too_long", Message: "password must not exceed 72 bytes"}
)

var (
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = &Error{Kind: KindConflict, Code: "email_taken", Message: "email already registered"}
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "invalid_credentials", Message: "invalid email or password"}
	// ErrCurrentPasswordInvalid indicates the current password supplied to a change is wrong.
	ErrCurrentPasswordInvalid = &Error{Kind: KindUnauthorized, Code: "current_password_invalid", Message: "current password is incorrect"}
	// ErrTokenInvalid means a session token cannot be validated.
	ErrTokenInvalid = &Error{Kind: KindUnauthorized, Code: "token_invalid", Message: "token invalid or expired"}
	// ErrInvalidOrExpiredToken means a reset token is unknown, consumed or expired.
	ErrInvalidOrExpiredToken = &Error{Kind: KindUnauthorized, Code: "reset_token_invalid", Message: "password reset token is invalid or has expired"}
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
)

// Dependency failures.
var (
	ErrStoreUnavailable = &Error{Kind: KindDependency, Code: "store_unavailable", Message: "storage is unavailable"}
	ErrMailDelivery     = &Error{Kind: KindDependency, Code: "mail_delivery_failed", Message: "could not send password reset email"}
)

// MissingFields returns ErrMissingFields naming the absent fields.
func MissingFields(fields ...string) error {
	if len(fields) == 0 {
		return ErrMissingFields
	}
	return &Error{
		Kind:    KindValidation,
		Code:    ErrMissingFields.Code,
		Message: "missing required fields: " + strings.Join(fields, ", "),
	}
}

// StoreUnavailable wraps an infrastructure error from a repository.
// Errors that already belong to the taxonomy pass through untouched.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// CodeOf extracts the machine readable code of err, or "internal_error".
func CodeOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return "internal_error"
}
