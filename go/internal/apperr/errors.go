// Package apperr defines the error kinds returned by game operations and
// how each kind maps onto the RPC and HTTP transports.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindUnauthorized       Kind = "Unauthorized"
	KindForbidden          Kind = "Forbidden"
	KindNotFound           Kind = "NotFound"
	KindPreconditionFailed Kind = "PreconditionFailed"
	KindValidationFailed   Kind = "ValidationFailed"
	KindConflict           Kind = "Conflict"
	KindInternal           Kind = "Internal"
)

// Error is a classified error. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err, keeping it as the cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the message a caller may see. Unclassified errors are redacted.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal error"
}

// Code maps a kind onto a connect error code.
func Code(kind Kind) connect.Code {
	switch kind {
	case KindUnauthorized:
		return connect.CodeUnauthenticated
	case KindForbidden:
		return connect.CodePermissionDenied
	case KindNotFound:
		return connect.CodeNotFound
	case KindPreconditionFailed:
		return connect.CodeFailedPrecondition
	case KindValidationFailed:
		return connect.CodeInvalidArgument
	case KindConflict:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// HTTPStatus maps a kind onto an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToConnect converts err into a connect error carrying the kind in the Error-Kind header.
func ToConnect(err error) *connect.Error {
	kind := KindOf(err)
	connectErr := connect.NewError(Code(kind), errors.New(PublicMessage(err)))
	connectErr.Meta().Set("Error-Kind", string(kind))
	return connectErr
}
