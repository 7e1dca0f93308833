package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure. Every error produced at the gateway
// boundary carries exactly one Kind; downstream logic branches on the Kind,
// never on ad hoc field probing.
type Kind string

const (
	// KindUnauthenticated is a 401 without a prior session. Expected and
	// silent during startup.
	KindUnauthenticated Kind = "unauthenticated"

	// KindServiceUnavailable is a 5xx during startup or renewal.
	KindServiceUnavailable Kind = "service_unavailable"

	// KindTransport is a network-level failure (unreachable host, timeout).
	KindTransport Kind = "transport"

	// KindValidation is any other 4xx from a business endpoint, carrying
	// the server-provided message.
	KindValidation Kind = "validation"

	// KindRefreshExhausted is a 401 from the renewal endpoint itself, or a
	// second 401 on an already-replayed call. Forces logout.
	KindRefreshExhausted Kind = "refresh_exhausted"
)

// Error is the tagged error value produced once at the gateway boundary.
// Status is zero for transport failures that never produced a response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a tagged error.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap creates a tagged error around an underlying cause.
func Wrap(cause error, kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message, cause: cause}
}

// KindOf extracts the Kind from an error chain. Errors that did not pass
// through the gateway report KindTransport, the most conservative class.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}

// StatusOf extracts the HTTP status from an error chain, or zero.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
