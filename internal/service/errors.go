package service

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed failure taxonomy for gateway and synchronizer
// operations. Callers branch on the kind, never on message text.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown ErrorKind = iota

	// KindValidation is malformed caller input. Never sent to the gateway.
	KindValidation

	// KindUnauthorized means the token was missing or rejected. The
	// caller should treat the session as invalid.
	KindUnauthorized

	// KindNetwork means no response reached the service.
	KindNetwork

	// KindTimeout means the request deadline elapsed.
	KindTimeout

	// KindServer is a 5xx response, carrying server-supplied detail
	// when present.
	KindServer

	// KindClient is a non-auth 4xx response (malformed request, not
	// found).
	KindClient

	// KindCache is a local cache failure. Logged and swallowed by the
	// synchronizer, never surfaced to the end user.
	KindCache
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network unavailable"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server error"
	case KindClient:
		return "client error"
	case KindCache:
		return "cache error"
	default:
		return "unknown"
	}
}

// Error is a classified operation failure.
type Error struct {
	Kind ErrorKind

	// Status is the HTTP status code, when one was received.
	Status int

	// Message is human-readable detail. For server errors this is the
	// server-supplied message when the response body carried one.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Errf constructs a classified error with a formatted message.
func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr classifies an underlying error.
func WrapErr(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from a classified error chain. Unclassified
// errors report KindUnknown.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// ErrNoIdentity signals an operation attempted with no active identity.
var ErrNoIdentity = &Error{Kind: KindValidation, Message: "no active identity"}
