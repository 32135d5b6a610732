package service

import (
	"errors"
	"fmt"
)

// ValidationError covers bad input, invalid state transitions and conflicts.
// It is never retried and is surfaced to the caller as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is raised for unknown ids.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func NewNotFoundError(resource string, id int64) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ProcessingError wraps a failed collaborator call. It is retryable within
// the job queue's backoff policy.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Stage)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func NewProcessingError(stage string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFoundError(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
