package messenger

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned when a second instance is requested
	// through New, or when the default provider is reconfigured after use.
	ErrAlreadyInitialized = errors.New("messenger already initialized, use GetInstance")
	// ErrNotConfigured is returned by the package-level accessors before Configure.
	ErrNotConfigured = errors.New("messenger not configured")
)

// InitError reports a failed or refused construction.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("messenger init: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
