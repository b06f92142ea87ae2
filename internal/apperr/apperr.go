// Package apperr defines the error taxonomy shared by the lifecycle engine,
// the payment coordinators, and the HTTP layer. Handlers branch on Code, not
// on error text.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeInvalidTransition Code = "invalid_state_transition"
	CodeInvalidSignature  Code = "invalid_signature"
	CodeValidation        Code = "validation"
	CodeExternal          Code = "external"
	CodeInternal          Code = "internal"
)

// Forbidden reasons distinguish "not the owner" from "not the assignee".
const (
	ReasonNotOwner    = "not_owner"
	ReasonNotAssignee = "not_assignee"
)

type Error struct {
	Code    Code
	Message string
	// Reason qualifies forbidden errors.
	Reason string
	// Expected and Actual carry the status pair for invalid transitions.
	Expected string
	Actual   string
	// Retryable classifies external gateway failures.
	Retryable bool

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

func NotFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found"}
}

func NotOwner() *Error {
	return &Error{Code: CodeForbidden, Reason: ReasonNotOwner, Message: "only the chore owner may perform this action"}
}

func NotAssignee() *Error {
	return &Error{Code: CodeForbidden, Reason: ReasonNotAssignee, Message: "only the assigned worker may perform this action"}
}

func InvalidTransition(expected, actual string) *Error {
	return &Error{
		Code:     CodeInvalidTransition,
		Message:  fmt.Sprintf("chore status is %q, expected %q", actual, expected),
		Expected: expected,
		Actual:   actual,
	}
}

func InvalidSignature() *Error {
	return &Error{Code: CodeInvalidSignature, Message: "payment signature verification failed"}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func External(msg string, retryable bool, err error) *Error {
	return &Error{Code: CodeExternal, Message: msg, Retryable: retryable, err: err}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", err: err}
}

// CodeOf returns the taxonomy code for err, or CodeInternal for anything
// unclassified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// As unwraps err to an *Error if it carries one.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsRetryable reports whether err is an external error worth retrying.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Code == CodeExternal && e.Retryable
}
