// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Errors have one shape everywhere, and the HTTP status is derived from the
// apperr code the error carries, so handlers never pick status codes for
// failures themselves.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a record, a list…).
// Error responses always look like:
//
//	{ "status": "error", "code": "validation_failed", "error": "Invalid mobile number. It must be 10 digits." }
//
// Code is the machine-readable apperr code; Error is the sentence shown to
// the student and is safe to display as is.
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`         // "ok" or "error"
	Code   string `json:"code,omitempty"` // apperr code, empty for plain decode errors
	Error  string `json:"error"`          // human-readable error detail
}

// Status string constants, so a typo is a compile error rather than a
// silently wrong response.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// Parameters:
//
//	w      the http.ResponseWriter provided to every handler
//	status HTTP status code (e.g. http.StatusOK = 200)
//	data   any Go value; it is JSON-encoded into the body
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// The encoder streams straight into w and appends a newline.
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape, with
// no code. Use it only for errors whose text is safe to show.
//
//	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into one Response whose
// message names every invalid field.
//
// The sentences come from validation.Messages, the same ones the session
// service uses, so a bad mobile number reads identically whether the
// handler or the service caught it:
//
//	{ "status": "error", "code": "validation_failed",
//	  "error": "Invalid mobile number. It must be 10 digits. Field dob is required." }
func ValidationError(errs validator.ValidationErrors) Response {
	return Response{
		Status: StatusError,
		Code:   string(apperr.CodeValidation),
		Error:  strings.Join(validation.Messages(errs), " "),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error writes err with the status matching its apperr code.
//
//	validation_failed, bad_request          → 400
//	auth_failed, not_found, unauthorized    → 401
//	conflict, invalid_transition            → 409
//	load_failed, save_failed                → 502
//	anything else                           → 500
//
// Errors that carry no code are reported as a generic internal error; their
// text may contain paths or upstream messages and is not echoed.
// ─────────────────────────────────────────────────────────────────────────────
func Error(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		WriteJSON(w, http.StatusInternalServerError, Response{
			Status: StatusError,
			Code:   string(apperr.CodeInternal),
			Error:  "internal error",
		})
		return
	}
	WriteJSON(w, apperr.HTTPStatus(appErr.Code), Response{
		Status: StatusError,
		Code:   string(appErr.Code),
		Error:  err.Error(),
	})
}
