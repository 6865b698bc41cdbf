package errors

import (
	"errors"
	"fmt"
)

// Domain errors for the credit ledger and marketplace
var (
	ErrNoAccount           = errors.New("no account onboarded")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrOrderNotFound       = errors.New("order not found")
	ErrSessionClosed       = errors.New("session closed")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Invalid wraps a domain sentinel in a ValidationError so callers can match
// either the sentinel or the validation class.
func Invalid(field string, cause error) error {
	return &ValidationError{
		Field:   field,
		Message: cause.Error(),
		Cause:   cause,
	}
}

type StoreError struct {
	Operation string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during '%s': %v", e.Operation, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

func NewStoreError(operation string, cause error) error {
	return &StoreError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrOrderNotFound)
}

func IsNoAccount(err error) bool {
	return errors.Is(err, ErrNoAccount)
}

func IsInsufficientCredits(err error) bool {
	return errors.Is(err, ErrInsufficientCredits)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	ok := errors.As(err, &validationErr)
	return validationErr, ok
}

func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}
