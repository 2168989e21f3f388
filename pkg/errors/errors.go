package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error
type ErrorCode string

const (
	ErrValidation        ErrorCode = "VALIDATION"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrForbidden         ErrorCode = "FORBIDDEN"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrConflict          ErrorCode = "SCHEDULING_CONFLICT"
	ErrVersionMismatch   ErrorCode = "VERSION_MISMATCH"
	ErrUpstream          ErrorCode = "UPSTREAM"
	ErrInternal          ErrorCode = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so callers can use errors.Is with sentinels.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal for unclassified errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Error constructors
func Validation(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func Validationf(format string, args ...interface{}) *AppError {
	return &AppError{Code: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: ErrForbidden, Message: message}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("invalid status transition from %s to %s", from, to),
	}
}

func SchedulingConflict(message string) *AppError {
	return &AppError{Code: ErrConflict, Message: message}
}

func VersionMismatch(resource string) *AppError {
	return &AppError{
		Code:    ErrVersionMismatch,
		Message: fmt.Sprintf("%s was modified concurrently, reload and retry", resource),
	}
}

func Upstream(system string, err error) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("%s is unavailable", system),
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}
