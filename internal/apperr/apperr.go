// Package apperr defines the error kinds the service distinguishes.
//
// Adapters and the session service return *Error values (or wrap them) so the
// HTTP layer can choose a status code and a user-facing message without
// knowing where the failure came from.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable, transport-independent error category.
type Code string

const (
	CodeLoadFailed        Code = "load_failed"
	CodeSaveFailed        Code = "save_failed"
	CodeAuthFailed        Code = "auth_failed"
	CodeNotFound          Code = "not_found"
	CodeValidation        Code = "validation_failed"
	CodeConflict          Code = "conflict"
	CodeUnauthorized      Code = "unauthorized"
	CodeInvalidTransition Code = "invalid_transition"
	CodeBadRequest        Code = "bad_request"
	CodeInternal          Code = "internal_error"
)

// Error carries a Code, a message safe to show to a user, and the cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code, so errors.Is(err, apperr.New(CodeNotFound, "")) works
// whatever the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A code already present on err
// is kept.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps a code to the status the API answers with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeAuthFailed, CodeNotFound, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict, CodeInvalidTransition:
		return http.StatusConflict
	case CodeLoadFailed, CodeSaveFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
