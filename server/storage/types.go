package storage

import (
	"errors"
	"fmt"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Type, so errors.Is(err, &Error{Type: ErrNotFound}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type && t.Message == ""
}

// IsNotFound reports whether err is a not-found storage error
func IsNotFound(err error) bool {
	return hasType(err, ErrNotFound)
}

// IsInvalidInput reports whether err is an invalid-input storage error
func IsInvalidInput(err error) bool {
	return hasType(err, ErrInvalidInput)
}

func hasType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

func invalidPath(path, reason string) error {
	return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("invalid path %q: %s", path, reason)}
}
