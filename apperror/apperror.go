// Package apperror defines the error values services return and the HTTP
// status each one maps to.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed error returned by services.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a 400 error whose message lists every offending field.
func Validation(fields ...FieldError) *Error {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Message != "" {
			names = append(names, f.Message)
		} else {
			names = append(names, f.Field+" is invalid")
		}
	}
	msg := "Validation failed"
	if len(names) > 0 {
		msg = "Validation failed: " + strings.Join(names, ", ")
	}
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: msg,
		Fields:  fields,
	}
}

// Required is a shortcut for a validation error on missing fields.
func Required(fields ...string) *Error {
	fe := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		fe = append(fe, FieldError{Field: f, Message: f + " is required"})
	}
	return Validation(fe...)
}

func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &Error{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: resource + " not found"}
}

func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func TooLarge(message string) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Code: "PAYLOAD_TOO_LARGE", Message: message}
}

// Internal wraps an unexpected failure. Its message is only exposed in development.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}

// From returns err as *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// StatusOf reports the HTTP status for err.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return From(err).Status
}

// Is reports whether err is an *Error carrying status.
func Is(err error, status int) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == status
}
