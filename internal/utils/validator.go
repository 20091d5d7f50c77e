package utils

import (
	"regexp"
	"strings"
)

// MaxPasswordBytes is the longest input bcrypt accepts
const MaxPasswordBytes = 72

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword validates a password: non-blank and within bcrypt's input limit
func ValidatePassword(password string) bool {
	return strings.TrimSpace(password) != "" && len(password) <= MaxPasswordBytes
}

// SanitizeEmail trims surrounding whitespace. Emails are compared case-sensitively.
func SanitizeEmail(email string) string {
	return strings.TrimSpace(email)
}
