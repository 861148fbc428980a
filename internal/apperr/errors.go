// Package apperr defines the domain error taxonomy shared by the ledger,
// analytics and service layers.
//
// Every typed error unwraps to one sentinel, so callers can branch with
// errors.Is without caring about the concrete type:
//
//	ValidationError -> ErrInvalidInput  (client error, never retried)
//	ForbiddenError  -> ErrForbidden     (authorization failure)
//	NotFoundError   -> ErrNotFound      (missing reference)
//	ConflictError   -> ErrConflict      (state does not allow the operation)
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ValidationError reports malformed or inconsistent input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Validationf formats a ValidationError message.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports that the actor may not perform the operation.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NewForbiddenError returns a ForbiddenError with the given reason.
func NewForbiddenError(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// NotFoundError reports a missing resource reference.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError returns a NotFoundError for resource id.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports that the current state forbids the operation,
// e.g. deleting a bill with payments or settling a settled debt.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError returns a ConflictError with the given reason.
func NewConflictError(reason string) error {
	return &ConflictError{Reason: reason}
}

func IsValidation(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsForbidden(err error) bool  { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
