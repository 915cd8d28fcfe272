package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRoleMismatch is returned when a user resolves but carries a different role than expected.
	ErrRoleMismatch = errors.New("role mismatch")

	// ErrInvalidTransition is returned when a status precondition is violated.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned for malformed input (bad timestamp, duplicate name, missing field).
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned by repositories when a unique constraint is violated.
	ErrConflict = errors.New("resource already exists")

	// ErrStatusConflict is returned by repositories when a conditional status update
	// finds the row in a different status than expected (another writer got there first).
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNoActiveRoute is returned when a driver has no route that is on the way or arrived.
	ErrNoActiveRoute = errors.New("no active route")

	// ErrNoStreetAssigned is returned when a resident has no street to build an inbox for.
	ErrNoStreetAssigned = errors.New("no street assigned")
)

// NotFoundError reports which entity could not be resolved.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RoleMismatchError is returned when a user exists but is not of the expected role.
type RoleMismatchError struct {
	UserID   int64
	Username string
	Expected Role
	Actual   Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("user %d (%s) is not a %s; they are %s", e.UserID, e.Username, e.Expected, e.Actual)
}

func (e *RoleMismatchError) Unwrap() error { return ErrRoleMismatch }

// InvalidTransitionError describes a rejected lifecycle action and the status that blocked it.
// Action reads as a verb phrase, e.g. "start" or "request a stop for".
type InvalidTransitionError struct {
	Entity  string
	ID      int64
	Action  string
	Current string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %d with status %s", e.Action, e.Entity, e.ID, e.Current)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError names the offending input field. Cause is set when the failure
// comes from a reference that did not resolve.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap exposes both ErrValidation and the underlying cause to errors.Is / errors.As.
func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrValidation, e.Cause}
	}
	return []error{ErrValidation}
}

// NewValidationError is a shorthand for a field-level validation failure.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ErrorResponse is the JSON body returned by the API on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}
