package logrotate

import (
	"errors"
	"fmt"
)

// Common errors returned by logrotate operations
var (
	// ErrConfig indicates an invalid or missing option
	ErrConfig = errors.New("logrotate: invalid configuration")

	// ErrMissingFile indicates the target file is absent
	ErrMissingFile = errors.New("logrotate: file does not exist")

	// ErrLocked indicates another daemon already owns the log directory
	ErrLocked = errors.New("logrotate: log directory locked by another instance")

	// ErrUnsupported indicates the platform lacks a required primitive
	ErrUnsupported = errors.New("logrotate: not supported on this platform")
)

// ConfigError describes a rejected option. It is returned synchronously
// and wraps ErrConfig.
type ConfigError struct {
	// Field is the option name as it appears in the config file
	Field string
	// Reason explains why the value was rejected
	Reason string
}

// Error returns a formatted error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("logrotate: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrConfig
func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// OpError represents an error from a filesystem, process or watch operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("logrotate %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates the errors of one rescan
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
