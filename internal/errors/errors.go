package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates a bad secret or unknown identifier.
	// A user error; never retried.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeProviderUnavailable indicates the identity provider could not be
	// reached (network failure, connection refused, 5xx).
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodeProviderTimeout indicates a provider call exceeded its bounded timeout.
	ErrCodeProviderTimeout ErrorCode = "provider_timeout"
	// ErrCodeDuplicateIdentifier indicates the identifier is already registered.
	// Field names the colliding identifier (username or email).
	ErrCodeDuplicateIdentifier ErrorCode = "duplicate_identifier"
	// ErrCodeRoleNotFound indicates the expected role is missing from the provider.
	ErrCodeRoleNotFound ErrorCode = "role_not_found"
	// ErrCodeValidation indicates invalid input caught before any network call.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for
	// validation and duplicate-identifier errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidCredentials, Message: message}
}

// ProviderUnavailable creates a new ProviderUnavailable error.
func ProviderUnavailable(message string) *AppError {
	return &AppError{Code: ErrCodeProviderUnavailable, Message: message}
}

// ProviderTimeout creates a new ProviderTimeout error.
func ProviderTimeout(message string) *AppError {
	return &AppError{Code: ErrCodeProviderTimeout, Message: message}
}

// DuplicateIdentifier creates a new DuplicateIdentifier error for a specific field.
func DuplicateIdentifier(field, message string) *AppError {
	return &AppError{Code: ErrCodeDuplicateIdentifier, Message: message, Field: field}
}

// RoleNotFound creates a new RoleNotFound error.
func RoleNotFound(message string) *AppError {
	return &AppError{Code: ErrCodeRoleNotFound, Message: message}
}

// RoleNotFoundf creates a new RoleNotFound error with formatted message.
func RoleNotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeRoleNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsProviderUnavailable checks if an error is a ProviderUnavailable error.
func IsProviderUnavailable(err error) bool {
	return isCode(err, ErrCodeProviderUnavailable)
}

// IsProviderTimeout checks if an error is a ProviderTimeout error.
func IsProviderTimeout(err error) bool {
	return isCode(err, ErrCodeProviderTimeout)
}

// IsTransient reports whether the error is a transient provider failure that
// write paths may retry. Invalid credentials and validation-class errors are
// never transient.
func IsTransient(err error) bool {
	return IsProviderUnavailable(err) || IsProviderTimeout(err)
}

// IsDuplicateIdentifier checks if an error is a DuplicateIdentifier error.
func IsDuplicateIdentifier(err error) bool {
	return isCode(err, ErrCodeDuplicateIdentifier)
}

// IsRoleNotFound checks if an error is a RoleNotFound error.
func IsRoleNotFound(err error) bool {
	return isCode(err, ErrCodeRoleNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
