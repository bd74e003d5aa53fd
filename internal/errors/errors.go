// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDayNotFound   = errors.New("trading day data not found")
	ErrMissingLeg    = errors.New("required leg quote unavailable")
	ErrStaleLeg      = errors.New("leg quote unavailable at valuation")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// DataError represents a market-data error for a specific day or tick.
type DataError struct {
	Date    string
	Tick    int
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s @ %d]: %s: %v", e.Date, e.Tick, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s @ %d]: %s", e.Date, e.Tick, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(date string, tick int, message string, err error) *DataError {
	return &DataError{
		Date:    date,
		Tick:    tick,
		Message: message,
		Err:     err,
	}
}

// ConfigError represents an invalid strategy or engine parameter. It is
// fatal at construction time, before any simulation begins.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RiskError carries the context of a daily loss limit breach. It is a
// control-flow signal rather than a failure; the engine logs it and ends
// the day.
type RiskError struct {
	Current float64
	Limit   float64
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("daily loss limit breached (pnl: %.2f, limit: -%.2f)", e.Current, e.Limit)
}

// NewRiskError creates a new RiskError.
func NewRiskError(current, limit float64) *RiskError {
	return &RiskError{Current: current, Limit: limit}
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
