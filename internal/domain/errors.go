package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds used across the domain packages.
var (
	ErrValidation   = errors.New("validation error")
	ErrRejected     = errors.New("business rule rejected")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrDependency   = errors.New("dependency failure")
)

// DomainError carries an error kind plus a user-presentable message.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Err }

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewRejectionError reports a business-rule rejection with no side effects.
func NewRejectionError(message string) *DomainError {
	return &DomainError{Err: ErrRejected, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a write conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewInvalidStateError reports an illegal state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewDependencyError reports an upstream dependency failure.
func NewDependencyError(message string, cause error) *DomainError {
	return &DomainError{Err: ErrDependency, Message: fmt.Sprintf("%s: %v", message, cause)}
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err, kind error) bool {
	var de *DomainError
	return errors.As(err, &de) && errors.Is(de.Err, kind)
}
