package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrConflict             = errors.New("resource conflict")
	ErrInternal             = errors.New("internal server error")
	ErrValidation           = errors.New("validation error")
	ErrInvalidRange         = errors.New("invalid time range")
	ErrResourceConflict     = errors.New("schedule conflict on resource")
	ErrRequirementNotFound  = errors.New("requirement not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrLocationUnconfigured = errors.New("location not configured")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Planning-domain error constructors

// InvalidRange is returned when an interval's end does not lie after its start.
func InvalidRange(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidRange,
		Code:       "INVALID_RANGE",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// ResourceConflict is returned when a run would overlap another run on the
// same resource and the overlap cannot be auto-resolved.
func ResourceConflict(message string) *AppError {
	return &AppError{
		Err:        ErrResourceConflict,
		Code:       "RESOURCE_CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// RequirementNotFound is returned for tracking updates against a requirement
// the caller cannot evidence.
func RequirementNotFound(materialID, date string) *AppError {
	return &AppError{
		Err:        ErrRequirementNotFound,
		Code:       "REQUIREMENT_NOT_FOUND",
		Message:    fmt.Sprintf("no requirement for material %s on %s", materialID, date),
		StatusCode: http.StatusNotFound,
	}
}

// InsufficientBalance is returned when confirming a movement would drive the
// source balance negative.
func InsufficientBalance(message string) *AppError {
	return &AppError{
		Err:        ErrInsufficientBalance,
		Code:       "INSUFFICIENT_BALANCE",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// LocationUnconfigured is returned when a resource or warehouse has no
// inventory location mapped to it.
func LocationUnconfigured(message string) *AppError {
	return &AppError{
		Err:        ErrLocationUnconfigured,
		Code:       "LOCATION_UNCONFIGURED",
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
