package korrel8r

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrStoreUnavailable covers connection failures, DNS errors and non-2xx responses.
	ErrStoreUnavailable = errors.New("correlation store unavailable")

	// ErrTimeout is returned when a call exceeds its per-call timeout.
	ErrTimeout = errors.New("correlation request timed out")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed correlation response")
)

// Error is the typed failure of a single Korrel8r call.
type Error struct {
	// Op names the client operation, e.g. "list_goals".
	Op string

	// Kind is one of ErrStoreUnavailable, ErrTimeout or ErrMalformedResponse.
	Kind error

	// StatusCode is the HTTP status when the server answered, else 0.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("korrel8r %s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason returns a short, stable label for err suitable for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

// classifyTransportError maps an error from the HTTP round trip to a typed *Error.
func classifyTransportError(op string, err error) *Error {
	if isTimeout(err) {
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}
	return &Error{Op: op, Kind: ErrStoreUnavailable, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
