package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyEmail indicates the email address is empty
	ErrEmptyEmail = errors.New("email address cannot be empty")

	// ErrInvalidEmail indicates the email address is malformed
	ErrInvalidEmail = errors.New("email address is not valid")

	// ErrEmptyPhone indicates the phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidPhone indicates the phone number is malformed
	ErrInvalidPhone = errors.New("phone number must be 7 to 15 digits, optionally prefixed with +")
)

// emailRegex is a pragmatic check, not an RFC 5322 parser. The mail gateway
// is the final arbiter of deliverability.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// phoneRegex matches digits only (after sanitizing)
var phoneRegex = regexp.MustCompile(`^\d{7,15}$`)

// ContactValidator validates guest and employee contact details
type ContactValidator struct{}

// NewContactValidator creates a new contact validator instance
func NewContactValidator() *ContactValidator {
	return &ContactValidator{}
}

// ValidateEmail validates an email address.
// Returns the sanitized (trimmed, lowercased) address and error if invalid
func (v *ContactValidator) ValidateEmail(email string) (string, error) {
	sanitized := strings.ToLower(strings.TrimSpace(email))
	if sanitized == "" {
		return "", ErrEmptyEmail
	}
	if !emailRegex.MatchString(sanitized) {
		return "", ErrInvalidEmail
	}
	return sanitized, nil
}

// ValidatePhone validates a visitor phone number.
// Accepts formats like 0771234567, +91 98765 43210 or 077-123-4567.
// Returns the sanitized number (digits, leading + preserved) and error if invalid
func (v *ContactValidator) ValidatePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", ErrEmptyPhone
	}

	prefix := ""
	if strings.HasPrefix(trimmed, "+") {
		prefix = "+"
		trimmed = trimmed[1:]
	}

	sanitized := v.SanitizeDigits(trimmed)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidPhone
	}

	return prefix + sanitized, nil
}

// SanitizeDigits removes all non-digit characters
func (v *ContactValidator) SanitizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
