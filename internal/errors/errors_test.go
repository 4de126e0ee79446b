package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "resource not found",
			},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeProviderUnavailable,
				Message: "identity provider request failed",
				Cause:   errors.New("connection refused"),
			},
			want: "identity provider request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors_SetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"invalid credentials", InvalidCredentials("bad secret"), ErrCodeInvalidCredentials},
		{"provider unavailable", ProviderUnavailable("down"), ErrCodeProviderUnavailable},
		{"provider timeout", ProviderTimeout("deadline"), ErrCodeProviderTimeout},
		{"duplicate identifier", DuplicateIdentifier("email", "already taken"), ErrCodeDuplicateIdentifier},
		{"role not found", RoleNotFound("no such role"), ErrCodeRoleNotFound},
		{"validation", Validation("bad input"), ErrCodeValidation},
		{"not found", NotFound("missing"), ErrCodeNotFound},
		{"internal", Internal("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
		})
	}
}

func TestIsHelpers_MatchThroughWrapping(t *testing.T) {
	base := ProviderTimeout("resolve exceeded 5s")
	wrapped := fmt.Errorf("materialize: %w", base)

	if !IsProviderTimeout(wrapped) {
		t.Errorf("expected IsProviderTimeout to match wrapped error")
	}
	if IsProviderUnavailable(wrapped) {
		t.Errorf("did not expect IsProviderUnavailable to match timeout")
	}
	if IsProviderTimeout(errors.New("plain")) {
		t.Errorf("did not expect IsProviderTimeout to match plain error")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ProviderUnavailable("down")) {
		t.Errorf("provider_unavailable should be transient")
	}
	if !IsTransient(ProviderTimeout("slow")) {
		t.Errorf("provider_timeout should be transient")
	}
	if IsTransient(InvalidCredentials("bad")) {
		t.Errorf("invalid_credentials should not be transient")
	}
	if IsTransient(RoleNotFound("missing")) {
		t.Errorf("role_not_found should not be transient")
	}
	if IsTransient(nil) {
		t.Errorf("nil should not be transient")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(DuplicateIdentifier("username", "taken")); got != ErrCodeDuplicateIdentifier {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeDuplicateIdentifier)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}

func TestGetField(t *testing.T) {
	err := fmt.Errorf("register: %w", DuplicateIdentifier("email", "already registered"))
	if got := GetField(err); got != "email" {
		t.Errorf("GetField() = %q, want %q", got, "email")
	}
	if got := GetField(errors.New("plain")); got != "" {
		t.Errorf("GetField(plain) = %q, want empty", got)
	}
}
