package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies account errors
type ErrorKind string

const (
	KindInvalidArgument       ErrorKind = "invalid_argument"
	KindConflict              ErrorKind = "conflict"
	KindNotAuthenticated      ErrorKind = "not_authenticated"
	KindForbidden             ErrorKind = "forbidden"
	KindNotFound              ErrorKind = "not_found"
	KindInvalidCredentials    ErrorKind = "invalid_credentials"
	KindSystem                ErrorKind = "system_error"
	KindOperationNotPermitted ErrorKind = "operation_not_permitted"
)

// Error is an account error with a stable kind and a caller-safe message.
// Err holds the internal cause; it is logged, never returned to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrForbidden) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Kind sentinels for use with errors.Is
var (
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrConflict              = &Error{Kind: KindConflict}
	ErrNotAuthenticated      = &Error{Kind: KindNotAuthenticated}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials}
	ErrSystem                = &Error{Kind: KindSystem}
	ErrOperationNotPermitted = &Error{Kind: KindOperationNotPermitted}
)

// NewError creates an error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an error of the given kind carrying an internal cause
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return NewError(KindInvalidArgument, message)
}

// SystemError wraps an internal failure behind a fixed message
func SystemError(message string, err error) *Error {
	return WrapError(KindSystem, message, err)
}

// KindOf returns the kind of err, or KindSystem for errors that are not account errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// MessageOf returns the caller-safe message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "system error"
}
