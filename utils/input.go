package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Bcrypt ignores everything past 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

var inputValidator = validator.New()

// ValidateEmail reports whether email is a syntactically valid address that
// fits the users.email column.
func ValidateEmail(email string) bool {
	return inputValidator.Var(email, "required,email,max=191") == nil
}

// ValidatePassword returns false and a message when password is unusable.
func ValidatePassword(password string) (bool, string) {
	switch {
	case len(password) < minPasswordLen:
		return false, "Password must be at least 8 characters"
	case len(password) > maxPasswordLen:
		return false, "Password must be at most 72 characters"
	}
	return true, ""
}

// SanitizeInput trims surrounding whitespace and strips NUL bytes.
func SanitizeInput(input string) string {
	return strings.ReplaceAll(strings.TrimSpace(input), "\x00", "")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(SanitizeInput(email))
}
