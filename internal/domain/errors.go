package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindNotFound   ErrorKind = "not-found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindDatabase   ErrorKind = "database"
)

// Error is the typed error returned by the service layer. Field names the
// offending input (may be empty) and Details carries the underlying cause for
// database errors.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(field, message string) *Error {
	return &Error{Kind: ErrorKindValidation, Field: field, Message: message}
}

func NewNotFoundError(field, message string) *Error {
	return &Error{Kind: ErrorKindNotFound, Field: field, Message: message}
}

func NewConflictError(field, message string) *Error {
	return &Error{Kind: ErrorKindConflict, Field: field, Message: message}
}

// NewDatabaseError wraps an infrastructure failure, keeping its text in Details.
func NewDatabaseError(message string, err error) *Error {
	e := &Error{Kind: ErrorKindDatabase, Message: message, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
