package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures for propagation and presentation.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindUpstream   Kind = "upstream"
	KindMalformed  Kind = "malformed_response"
	KindRender     Kind = "render"
	KindValidation Kind = "validation"
)

type Error struct {
	Kind    Kind
	Op      string // e.g. "GET /submitted", "export"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the failed action can succeed.
// Validation failures need a different input first.
func (e *Error) Retryable() bool {
	return e.Kind != KindValidation
}

func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "connection failed", Err: err}
}

func Upstream(op, message string) *Error {
	if message == "" {
		message = "remote service reported failure"
	}
	return &Error{Kind: KindUpstream, Op: op, Message: message}
}

func Malformed(op string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, Message: "unexpected response shape", Err: err}
}

func Render(op string, err error) *Error {
	return &Error{Kind: KindRender, Op: op, Message: "document rendering failed", Err: err}
}

func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
