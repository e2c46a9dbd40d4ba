package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted by EvaluatePassword.
const MinPasswordLength = 8

// PasswordSymbols is the punctuation set that satisfies the symbol rule.
const PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

var commonPasswords = map[string]struct{}{
	"password":     {},
	"password1":    {},
	"password1!":   {},
	"password123":  {},
	"password123!": {},
	"p@ssw0rd":     {},
	"p@ssw0rd1":    {},
	"passw0rd!":    {},
	"12345678":     {},
	"123456789":    {},
	"1234567890":   {},
	"87654321":     {},
	"11111111":     {},
	"00000000":     {},
	"qwerty123":    {},
	"qwerty123!":   {},
	"qwertyuiop":   {},
	"1q2w3e4r":     {},
	"1q2w3e4r!":    {},
	"abc12345":     {},
	"abcd1234":     {},
	"abcd1234!":    {},
	"iloveyou":     {},
	"iloveyou1!":   {},
	"sunshine":     {},
	"sunshine1!":   {},
	"princess":     {},
	"football":     {},
	"baseball":     {},
	"welcome1":     {},
	"welcome1!":    {},
	"welcome123":   {},
	"welcome123!":  {},
	"admin123":     {},
	"admin123!":    {},
	"letmein1":     {},
	"letmein1!":    {},
	"trustno1":     {},
	"monkey123":    {},
	"dragon123":    {},
	"superman1":    {},
	"changeme":     {},
	"changeme1!":   {},
}

// EvaluatePassword checks candidate against the password policy and returns
// the first violated rule, or nil.
func EvaluatePassword(candidate string) error {
	if candidate == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(candidate) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if _, ok := commonPasswords[strings.ToLower(candidate)]; ok {
		return ErrPasswordTooCommon
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasDigit || !hasSymbol {
		return ErrPasswordTooWeak
	}
	return nil
}
