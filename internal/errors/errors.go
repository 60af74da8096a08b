// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTradeNotFound     = errors.New("trade not found")
	ErrExitPriceRequired = errors.New("exit price is required to close a trade")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrMalformedImport   = errors.New("malformed import document")
	ErrMissingAPIKey     = errors.New("missing API key")
	ErrTradeBusy         = errors.New("analysis already in progress for trade")
	ErrSessionBusy       = errors.New("chat session is waiting for a response")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrEmotionalOverride = errors.New("emotional state must be acknowledged before trading")
	ErrInputValidation   = errors.New("input validation failed")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrNoResponse        = errors.New("no response from model")
)

// ValidationError represents a validation error. It matches ErrInputValidation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == nil || e.Value == "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StorageError reports a failed write to the persistent slot. The in-memory
// state has already been updated when one of these is returned.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s] %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// ImportError represents a rejected backup document.
type ImportError struct {
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("import rejected: %s", e.Reason)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func (e *ImportError) Is(target error) bool {
	return target == ErrMalformedImport
}

// NewImportError creates a new ImportError.
func NewImportError(reason string, err error) *ImportError {
	return &ImportError{
		Reason: reason,
		Err:    err,
	}
}

// CoachError represents a failed call to the coaching model.
type CoachError struct {
	Operation string
	Err       error
}

func (e *CoachError) Error() string {
	return fmt.Sprintf("coach error [%s]: %v", e.Operation, e.Err)
}

func (e *CoachError) Unwrap() error {
	return e.Err
}

// NewCoachError creates a new CoachError.
func NewCoachError(operation string, err error) *CoachError {
	return &CoachError{
		Operation: operation,
		Err:       err,
	}
}

// IsWarning reports whether err only signals a lagging persistent mirror.
func IsWarning(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
