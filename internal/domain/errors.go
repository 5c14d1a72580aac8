package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeEntryNotFound     = "ENTRY_NOT_FOUND"
	ErrCodeDriverNotFound    = "DRIVER_NOT_FOUND"
	ErrCodeEventNotFound     = "EVENT_NOT_FOUND"
	ErrCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	ErrCodeEquipmentConflict = "EQUIPMENT_CONFLICT"
	ErrCodeEquipmentNotFound = "EQUIPMENT_NOT_FOUND"
	ErrCodeUnknownBarcode    = "UNKNOWN_BARCODE"
	ErrCodeBadReference      = "BAD_REFERENCE"
	ErrCodeMissingField      = "MISSING_REQUIRED_FIELD"
)

func NewMissingFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidAmountError(raw string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %q", raw),
	}
}

func NewInvalidTransitionError(from, to EntryStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition entry from %s to %s", from, to),
	}
}

func NewEntryNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEntryNotFound,
		Message: fmt.Sprintf("race entry %s not found", id),
	}
}

func NewDriverNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDriverNotFound,
		Message: fmt.Sprintf("driver %s not found", id),
	}
}

func NewEventNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEventNotFound,
		Message: fmt.Sprintf("event %s not found", id),
	}
}

func NewDuplicateEntryError(driverID, eventID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateEntry,
		Message: fmt.Sprintf("driver %s already has an active entry for event %s", driverID, eventID),
	}
}

// NewEquipmentConflictError names the current holder so scanners know who to
// chase down in the paddock.
func NewEquipmentConflictError(serial, holderName string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEquipmentConflict,
		Message: fmt.Sprintf("Engine %s is already assigned to %s", serial, holderName),
	}
}

func NewEquipmentNotFoundError(serial string) *DomainError {
	return &DomainError{
		Code:    ErrCodeEquipmentNotFound,
		Message: fmt.Sprintf("no active assignment found for %s", serial),
	}
}

func NewUnknownBarcodeError(barcode string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnknownBarcode,
		Message: fmt.Sprintf("barcode %q does not match any known ticket type", barcode),
	}
}

func NewBadReferenceError(ref string) *DomainError {
	return &DomainError{
		Code:    ErrCodeBadReference,
		Message: fmt.Sprintf("payment reference %q is not in a recognized format", ref),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
