package auth

import (
	"fmt"
	"regexp"
	"unicode"
)

const (
	// MaxEmailLength matches the column width in the user store.
	MaxEmailLength = 190

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CredentialError reports a rejected signup or login input. It carries no
// sensitive material and is safe to return to the client.
type CredentialError struct {
	Reason string
}

func (e *CredentialError) Error() string {
	return "invalid credentials: " + e.Reason
}

func credErr(format string, args ...any) *CredentialError {
	return &CredentialError{Reason: fmt.Sprintf(format, args...)}
}

// ValidateEmail checks the shape and length of a signup email address.
func ValidateEmail(email string) error {
	if email == "" {
		return credErr("email must not be empty")
	}
	if len(email) > MaxEmailLength {
		return credErr("email exceeds %d characters", MaxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return credErr("email is not a valid address")
	}
	return nil
}

// ValidatePassword enforces the signup password policy: length bounds plus at
// least one letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return credErr("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return credErr("password exceeds %d characters", MaxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return credErr("password must contain at least one letter and one digit")
	}
	return nil
}
