package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Sentinels wrapped by DomainError so callers can match with errors.Is.
var (
	ErrDuplicateCategory = errors.New("duplicate department category")
	ErrValidation        = errors.New("validation failed")
	ErrBackend           = errors.New("model backend failure")
	ErrNotFound          = errors.New("not found")
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return &DomainError{
		Code:       "VALIDATION_FAILED",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
		Err:        ErrValidation,
	}
}

// NewDuplicateCategory reports an action that would create a second live
// department of the same category.
func NewDuplicateCategory(category string) error {
	return &DomainError{
		Code:       "DUPLICATE_CATEGORY",
		Message:    "department category already exists",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"category": category},
		Err:        ErrDuplicateCategory,
	}
}

// NewDuplicateCategoryBatch rejects a department batch whose categories
// collide with each other or with live departments. It matches both
// ErrValidation and ErrDuplicateCategory.
func NewDuplicateCategoryBatch(category string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["category"] = category
	return &DomainError{
		Code:       "VALIDATION_FAILED",
		Message:    "duplicate department category",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
		Err:        fmt.Errorf("%w: %w", ErrValidation, ErrDuplicateCategory),
	}
}

// NewBackendError wraps a language-model failure.
func NewBackendError(provider string, err error) error {
	return &DomainError{
		Code:       "BACKEND_ERROR",
		Message:    "model backend request failed",
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"provider": provider},
		Err:        fmt.Errorf("%w: %v", ErrBackend, err),
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
		Err:        ErrNotFound,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
