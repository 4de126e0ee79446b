package validation

// Package validation contains form-level validators for the registration and
// scheduling forms. Everything here runs before any network call.

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Validator is a function that validates a string value and returns an error message if invalid.
type Validator func(v string) string

// Required validates that a field is not empty and does not exceed maxLen characters.
// Uses rune count for proper Unicode support.
func Required(fieldName string, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		if utf8.RuneCountInString(v) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, maxLen)
		}
		return ""
	}
}

// RequiredRange validates that a field is not empty and is between minLen and maxLen characters.
func RequiredRange(fieldName string, minLen, maxLen int) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		n := utf8.RuneCountInString(v)
		if n < minLen || n > maxLen {
			return fmt.Sprintf("%s must be between %d and %d characters.", fieldName, minLen, maxLen)
		}
		return ""
	}
}

// Email validates a plausible email shape. Deliverability is the provider's
// problem; this catches typos before the network call.
func Email(fieldName string) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		at := strings.Index(v, "@")
		if at <= 0 || at == len(v)-1 || strings.Count(v, "@") != 1 {
			return fieldName + " is not a valid email address."
		}
		if !strings.Contains(v[at+1:], ".") {
			return fieldName + " is not a valid email address."
		}
		return ""
	}
}

// FutureTime validates a datetime-local form value that must parse and lie in
// the future.
func FutureTime(fieldName string, now time.Time) Validator {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return fieldName + " is required."
		}
		t, err := time.Parse("2006-01-02T15:04", v)
		if err != nil {
			return fieldName + " is not a valid date and time."
		}
		if t.Before(now) {
			return fieldName + " must be in the future."
		}
		return ""
	}
}

// ValidateRegistration applies the registration field validators and returns
// field name → message for every failure.
func ValidateRegistration(username, email, secret string) map[string]string {
	fieldErrors := map[string]string{}
	if msg := RequiredRange("Username", 3, 60)(username); msg != "" {
		fieldErrors["username"] = msg
	}
	if msg := Email("Email")(email); msg != "" {
		fieldErrors["email"] = msg
	}
	if msg := RequiredRange("Password", 8, 128)(secret); msg != "" {
		fieldErrors["secret"] = msg
	}
	return fieldErrors
}
