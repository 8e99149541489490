package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantCode   string
		wantStatus int
	}{
		{
			name:       "not found",
			appErr:     NotFound("Booking"),
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "forbidden",
			appErr:     Forbidden("Room is already at full capacity", nil),
			wantCode:   CodeForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "invalid input",
			appErr:     InvalidInput("Invalid request body"),
			wantCode:   CodeInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized",
			appErr:     Unauthorized("Missing token"),
			wantCode:   CodeUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "conflict",
			appErr:     Conflict("Room is busy"),
			wantCode:   CodeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "internal",
			appErr:     Internal("boom", errors.New("disk on fire")),
			wantCode:   CodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.appErr.Code)
			}
			if tt.appErr.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.appErr.StatusCode())
			}
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("Room")
	if err.Message != "Room not found" {
		t.Errorf("expected 'Room not found', got %q", err.Message)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestForbidden_PreservesCause(t *testing.T) {
	cause := errors.New("ticket is remote")
	appErr := Forbidden("User is not eligible to book a room", cause)

	if !errors.Is(appErr, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if errors.Unwrap(appErr) != cause {
		t.Error("Unwrap() should return the original cause")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if got := AsAppError(appErr); got != appErr {
		t.Error("an AppError should pass through unchanged")
	}

	plain := errors.New("cursor timeout")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, got.Code)
	}
	if got.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got.StatusCode())
	}
	if got.Message == plain.Error() {
		t.Error("internal error detail must not leak into the message")
	}
}

func TestIsAppError(t *testing.T) {
	if !IsAppError(NotFound("Booking")) {
		t.Error("expected true for an AppError")
	}
	if IsAppError(errors.New("plain")) {
		t.Error("expected false for a plain error")
	}
}
