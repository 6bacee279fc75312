// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrTradeNotFound       = errors.New("trade not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTradeClosed         = errors.New("trade already closed")
	ErrMissingExitPrice    = errors.New("exit price is required to close a trade")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRiskLocked          = errors.New("trading locked by risk rules")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrNotConfirmed        = errors.New("operation requires confirmation")
	ErrMissingColumns      = errors.New("missing mandatory columns")
	ErrInvalidTrade        = errors.New("invalid trade")
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrConfigInvalid       = errors.New("invalid configuration")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidTrade for any validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTrade
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RiskLockError is returned when a LIVE trade is refused because the daily
// risk limits are exhausted. Reason is meant to be shown to the user as is.
type RiskLockError struct {
	Reason string
}

func (e *RiskLockError) Error() string {
	return fmt.Sprintf("risk lock: %s", e.Reason)
}

func (e *RiskLockError) Unwrap() error {
	return ErrRiskLocked
}

// NewRiskLockError creates a new RiskLockError.
func NewRiskLockError(reason string) *RiskLockError {
	return &RiskLockError{Reason: reason}
}

// ImportError reports the mandatory CSV columns that could not be resolved.
type ImportError struct {
	Missing []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error: missing columns: %s", strings.Join(e.Missing, ", "))
}

func (e *ImportError) Unwrap() error {
	return ErrMissingColumns
}

// NewImportError creates a new ImportError.
func NewImportError(missing []string) *ImportError {
	return &ImportError{Missing: missing}
}

// PriceError represents a failure to fetch a market price.
type PriceError struct {
	Symbol string
	Err    error
}

func (e *PriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price error [%s]: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("price error [%s]", e.Symbol)
}

func (e *PriceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrPriceUnavailable
}

// Is makes every PriceError match ErrPriceUnavailable.
func (e *PriceError) Is(target error) bool {
	return target == ErrPriceUnavailable
}

// NewPriceError creates a new PriceError.
func NewPriceError(symbol string, err error) *PriceError {
	return &PriceError{Symbol: symbol, Err: err}
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
