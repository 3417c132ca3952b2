package services

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed dispatch input synchronously; no record
// is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	ErrQuotaExhausted = errors.New("no post credits remaining")

	// ErrUnrecognizedSchedule marks a legacy schedule string matching none of
	// the accepted formats. The record is left scheduled, never failed.
	ErrUnrecognizedSchedule = errors.New("schedule string matches no accepted format")
)
