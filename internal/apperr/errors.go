// Package apperr defines the request-scoped error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError rejects a request because a field is missing or malformed.
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

// NotFoundError reports a missing record, or one owned by another subject.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// FileProcessingError reports an unreadable or unsupported upload.
type FileProcessingError struct {
	Message string
	Err     error
}

func (e *FileProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FileProcessingError) Unwrap() error { return e.Err }

// Validation is shorthand for a *ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound is shorthand for a *NotFoundError.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsFileProcessing(err error) bool {
	var target *FileProcessingError
	return errors.As(err, &target)
}
