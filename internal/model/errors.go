package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable marks a failure of a backing store (database, cache,
// revocation backend).  It is reported as 503 and never as an
// authentication failure.
var ErrUnavailable = errors.New("service unavailable")

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// AuthErrorKind enumerates the authentication and authorization failures.
type AuthErrorKind int

const (
	NoCredentials AuthErrorKind = iota + 1
	TokenExpired
	InvalidToken
	RefreshInvalid
	AuthenticationFailed
	Forbidden
)

// Wire codes.  Clients branch on these, never on the message.
const (
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeForbidden            = "FORBIDDEN"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
)

func (k AuthErrorKind) String() string {
	switch k {
	case NoCredentials:
		return "NoCredentials"
	case TokenExpired:
		return "TokenExpired"
	case InvalidToken:
		return "InvalidToken"
	case RefreshInvalid:
		return "RefreshInvalid"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case Forbidden:
		return "Forbidden"
	}
	return fmt.Sprintf("AuthErrorKind(%d)", int(k))
}

// AuthError is a structured authentication or authorization failure.
// Reason keeps the precise internal cause for logging; it is never
// written to the client.  Several internal causes intentionally share
// the InvalidToken kind so responses do not reveal which check failed.
type AuthError struct {
	Kind   AuthErrorKind
	Reason error
}

// NewAuthError builds an AuthError with an optional internal reason.
func NewAuthError(kind AuthErrorKind, reason error) *AuthError {
	return &AuthError{Kind: kind, Reason: reason}
}

func (e *AuthError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Reason)
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Reason }

// Code returns the machine-readable error code.
func (e *AuthError) Code() string {
	switch e.Kind {
	case TokenExpired:
		return CodeTokenExpired
	case InvalidToken:
		return CodeInvalidToken
	case Forbidden:
		return CodeForbidden
	default:
		return CodeAuthenticationFailed
	}
}

// Message returns the human-readable message sent to clients.
func (e *AuthError) Message() string {
	switch e.Kind {
	case NoCredentials:
		return "not authenticated"
	case TokenExpired:
		return "token has expired"
	case InvalidToken:
		return "invalid token"
	case RefreshInvalid:
		return "invalid or expired refresh token"
	case Forbidden:
		return "insufficient permissions"
	default:
		return "invalid username or password"
	}
}

// Status returns the HTTP status for the error.
func (e *AuthError) Status() int {
	if e.Kind == Forbidden {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}
