// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Data loading errors. ErrDataSource and ErrNoData unwrap to ErrDataLoad
	// so callers can match the whole family with errors.Is.
	ErrDataLoad   = errors.New("data load failed")
	ErrDataSource = fmt.Errorf("%w: no transaction source found", ErrDataLoad)
	ErrNoData     = fmt.Errorf("%w: no parseable transactions", ErrDataLoad)

	// Row-level validation errors. Recovered locally: the offending row is
	// dropped and counted, never fatal.
	ErrDataValidation = errors.New("invalid row")

	// Analytical errors.
	ErrInsufficientData = errors.New("insufficient data")
	ErrComputation      = errors.New("computation failed")
	ErrNoRules          = errors.New("no association rules available")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
