package project

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Service. Handlers map them to HTTP status codes
// with errors.Is.
var (
	ErrValidation   = errors.New("invalid request")
	ErrNotFound     = errors.New("project not found")
	ErrForbidden    = errors.New("project belongs to another owner")
	ErrUnauthorized = errors.New("callback signature invalid")
	ErrConflict     = errors.New("project state conflict")
)

// ValidationError carries a client-facing message and an optional field name.
// It matches ErrValidation under errors.Is.
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

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
