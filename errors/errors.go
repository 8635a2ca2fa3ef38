package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy indicates another action is already in flight for the session
	ErrBusy = errors.New("session busy")

	// ErrWizardActive indicates a wizard owns input routing and the operation needs Idle
	ErrWizardActive = errors.New("wizard active")

	// ErrUnavailable indicates an action whose affordance is not currently offered
	ErrUnavailable = errors.New("action unavailable")

	// ErrTransport indicates a backend call failed on the network or returned a non-success status
	ErrTransport = errors.New("backend transport failure")

	// ErrEmptyResult indicates a well-formed backend response lacked the expected data
	ErrEmptyResult = errors.New("empty result")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsBusy checks if error was caused by the single-flight guard
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsUnavailable checks if error rejected an action that is not currently offered
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsTransport checks if error is a backend transport failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsEmptyResult checks if error is an empty-result error
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
