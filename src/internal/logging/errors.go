// FILE: logrelay/src/internal/logging/errors.go
package logging

import (
	"errors"
	"fmt"
)

// ErrAlreadyInitialized is returned by Init after the process-wide Logger exists
var ErrAlreadyInitialized = errors.New("logger already initialized")

// InitError reports a Logger that could not acquire a required resource
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s logging: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
