package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Module resolution errors
	ErrModuleNotFound    = errors.New("module not found")
	ErrCyclicResolution  = errors.New("cyclic module resolution")
	ErrAlreadyRegistered = errors.New("already registered")

	// Wiring errors
	ErrWiringFailed       = errors.New("capability wiring failed")
	ErrActivatorMissing   = errors.New("no activator registered for capability")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// State errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotInitialized = errors.New("not initialized")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
)

// FrameworkError provides structured error information with context
// It implements the error interface and supports error wrapping
type FrameworkError struct {
	Op      string // Operation that failed (e.g., "resolver.Resolve")
	Kind    string // Error kind (e.g., "module", "wiring", "config")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError creates a new FrameworkError
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// ConfigError builds the FrameworkError modules return for bad settings.
// err should be ErrInvalidConfiguration or ErrMissingConfiguration.
func ConfigError(op, key, message string, err error) *FrameworkError {
	return &FrameworkError{
		Op:      op,
		Kind:    "config",
		ID:      key,
		Message: message,
		Err:     fmt.Errorf("%s: %w", message, err),
	}
}

// IsNotFound checks if an error represents a "not found" condition.
// A resolution short-circuited by the recursion guard counts as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModuleNotFound) ||
		errors.Is(err, ErrCyclicResolution) ||
		errors.Is(err, ErrServiceNotFound)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsWiringError checks if an error was raised while activating a capability
func IsWiringError(err error) bool {
	return errors.Is(err, ErrWiringFailed)
}

// IsStateError checks if an error is related to invalid state transitions
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrAlreadyRegistered)
}
