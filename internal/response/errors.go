package response

import (
	"errors"
	"fmt"
)

// Error codes shared by services and handlers
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternal      = "INTERNAL_ERROR"

	ErrCodeNotParticipant = "NOT_PARTICIPANT"
	ErrCodeAlreadyHandled = "ALREADY_HANDLED"
	ErrCodeBoardFull      = "BOARD_FULL"
	ErrCodeTimeout        = "REQUEST_TIMEOUT"
	ErrCodeDemoMode       = "DEMO_MODE_UNSUPPORTED"
	ErrCodeAuthFailed     = "AUTH_FAILED"
)

// AppError is a service-layer error with a code the handler layer maps to a status
type AppError struct {
	Code    string
	Message string
	Details string
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates a new AppError
func NewAppError(code, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsCode reports whether err is an AppError carrying code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
