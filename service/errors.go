package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a query or delete matched no readings.
	ErrNotFound = errors.New("sensor data not found")
	// ErrConflict indicates the sensor already has a reading while unique sensor ids are enforced.
	ErrConflict = errors.New("sensor data already exists")
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
