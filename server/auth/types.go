package auth

import (
	"context"
	"errors"
	"fmt"
)

// Principal represents an authenticated user
type Principal struct {
	ID       string
	Handle   string
	ReadOnly bool
}

// Credentials represents authentication credentials
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrForbidden          ErrorType = "forbidden"
)

// Error represents an authentication-related error
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

// IsForbidden reports whether err denies an authenticated principal
func IsForbidden(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrForbidden
}

// Authenticator defines the interface for authentication providers
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)

	// ValidateAccess checks if a principal may issue method against path
	ValidateAccess(ctx context.Context, principal *Principal, method, path string) error
}

// AllowsMethod reports whether a principal may use an HTTP method.
// Read-only principals are limited to safe methods.
func AllowsMethod(p *Principal, method string) bool {
	if p == nil {
		return false
	}
	if !p.ReadOnly {
		return true
	}
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}
