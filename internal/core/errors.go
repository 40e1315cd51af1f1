package core

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
	Err     error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

func (e *ErrValidation) Unwrap() error {
	return e.Err
}

// ErrInfrastructure wraps a storage or transport failure. Callers may retry.
type ErrInfrastructure struct {
	Op  string
	Err error
}

func (e *ErrInfrastructure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ErrInfrastructure) Unwrap() error {
	return e.Err
}

// Invalid wraps a validation failure on field.
func Invalid(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrValidation{Field: field, Message: err.Error(), Err: err}
}

// IsNotFound reports whether err is or wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a user input problem, either an
// ErrValidation or one of the package validation sentinels.
func IsValidation(err error) bool {
	var ve *ErrValidation
	if errors.As(err, &ve) {
		return true
	}
	for _, s := range validationSentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

var validationSentinels = []error{
	ErrInvalidDay,
	ErrInvalidAmount,
	ErrAmountTooLarge,
	ErrInvalidCurrency,
	ErrInvalidKind,
	ErrEmptyDescription,
	ErrEmptyCategory,
	ErrEmptyName,
	ErrInstrumentConflict,
	ErrCardOnIncome,
	ErrInvalidPeriod,
}
