// Package domainerrors carries transport-neutral failure categories.
// Services return these and the HTTP layer maps them to statuses.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a failure category.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeValidation           Code = "validation_failed"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodePolicyViolation      Code = "policy_violation"
	CodeInvariantViolation   Code = "invariant_violation"
	CodeTooLarge             Code = "too_large"
	CodeUnsupportedMediaType Code = "unsupported_media_type"
	CodeTimeout              Code = "timeout"
	CodeUnavailable          Code = "unavailable"
	CodeInternal             Code = "internal_error"
)

// Error is a coded failure. Reason is a stable machine token such as
// "code-revoked"; Message is for humans.
type Error struct {
	Code    Code
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Reason != "":
		return e.Reason
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, New(CodeNotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewReason(code Code, reason, msg string) error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// Wrap attaches a message to err. A coded err keeps its code and reason;
// anything else takes code.
func Wrap(err error, code Code, msg string) error {
	out := &Error{Code: code, Message: msg, Err: err}
	if inner, ok := as(err); ok {
		out.Code, out.Reason = inner.Code, inner.Reason
	}
	return out
}

func HasCode(err error, code Code) bool {
	e, ok := as(err)
	return ok && e.Code == code
}

// ReasonOf returns the reason of the outermost coded error, or "".
func ReasonOf(err error) string {
	if e, ok := as(err); ok {
		return e.Reason
	}
	return ""
}

func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
