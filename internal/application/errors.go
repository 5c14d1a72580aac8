package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rokthenats/karting-registry/internal/domain"
)

// ServiceError carries the HTTP mapping for orchestration failures. The
// admin and officials consoles render Message verbatim, so messages are
// written for humans.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation = "VALIDATION"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

func NewValidationError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError surfaces as 400: the consoles treat "not found" as a
// client mistake (wrong barcode, stale entry id), not a missing resource.
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewConflictError(message string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// FromDomainError maps a domain error onto its HTTP-facing service error,
// preserving the human-readable message.
func FromDomainError(err error) *ServiceError {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return NewInternalError(err)
	}

	switch domainErr.Code {
	case domain.ErrCodeEntryNotFound,
		domain.ErrCodeDriverNotFound,
		domain.ErrCodeEventNotFound,
		domain.ErrCodeEquipmentNotFound:
		return NewNotFoundError(domainErr.Message)
	case domain.ErrCodeDuplicateEntry,
		domain.ErrCodeEquipmentConflict,
		domain.ErrCodeInvalidTransition:
		return NewConflictError(domainErr.Message)
	default:
		return NewValidationError(domainErr.Message)
	}
}
