package toolexec

import (
	"errors"
	"fmt"
)

// Code classifies a tool failure.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeResourceUnavailable Code = "RESOURCE_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// codeOK labels successful calls in metrics.
const codeOK = "OK"

// ErrUnknownTool is wrapped by errors for tools that are not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Error is a tool failure as seen by agents.
type Error struct {
	Code     Code   `json:"code"`
	Message  string `json:"error"`
	Recovery string `json:"recovery,omitempty"`

	// Err is the underlying cause. It is not sent over the wire.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput reports a caller mistake.
func InvalidInput(message, recovery string) *Error {
	return &Error{Code: CodeInvalidInput, Message: message, Recovery: recovery}
}

// Unavailable reports a backend that could not be reached.
func Unavailable(message, recovery string, err error) *Error {
	return &Error{Code: CodeResourceUnavailable, Message: message, Recovery: recovery, Err: err}
}

// Internal reports an unexpected failure.
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf returns the code of err. Errors that are not *Error are internal.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}
	return CodeInternal
}

// AsError converts any error into an *Error, keeping existing ones intact.
func AsError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return Internal(err.Error(), err)
}
