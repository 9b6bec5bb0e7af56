package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Controllers map them to
// HTTP status codes with errors.Is.
var (
	ErrNotFound         = errors.New("record not found")
	ErrValidation       = errors.New("validation failed")
	ErrRevisionConflict = errors.New("revision conflict")
	ErrInvoiceLocked    = errors.New("invoice is locked")
	ErrSettingsConflict = errors.New("settings version conflict")
)

// ConflictError is returned when a compare-and-swap update loses against a
// concurrent writer. Current holds the row as it is now stored.
type ConflictError struct {
	Current interface{}
}

func (e *ConflictError) Error() string {
	return ErrRevisionConflict.Error()
}

func (e *ConflictError) Unwrap() error {
	return ErrRevisionConflict
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}
