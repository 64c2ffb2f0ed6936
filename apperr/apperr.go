// Package apperr defines the error taxonomy shared by the console engines.
// Every public operation fails with an *Error so callers can branch on the code
// and the HTTP layer can map it to a status without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error category.
type Code string

const (
	CodeValidation         Code = "VALIDATION"          // 400
	CodeInvalidPointCount  Code = "INVALID_POINT_COUNT" // 400
	CodeMalformedSnapshot  Code = "MALFORMED_SNAPSHOT"  // 422
	CodeNotFound           Code = "NOT_FOUND"           // 404
	CodeMalformedData      Code = "MALFORMED_DATA"      // 422
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS" // 401
	CodeNetworkFailure     Code = "NETWORK_FAILURE"     // 502
	CodeTimeout            Code = "TIMEOUT"             // 504
	CodeExpired            Code = "EXPIRED"             // 401
	CodeUnauthenticated    Code = "UNAUTHENTICATED"     // 401
	CodeForbidden          Code = "FORBIDDEN"           // 403
	CodeSuperseded         Code = "SUPERSEDED"          // 409
	CodeUnsupportedFormat  Code = "UNSUPPORTED_FORMAT"  // 400
	CodeInternal           Code = "INTERNAL"            // 500
)

// Error is a structured error with code, status and optional details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func NewValidation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

// NewInvalidPointCount reports a point slice that does not fit the annotation kind.
func NewInvalidPointCount(kind string, want, got int) *Error {
	return &Error{
		Code:    CodeInvalidPointCount,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("%s needs %d point(s), got %d", kind, want, got),
		Details: map[string]any{"kind": kind, "want": want, "got": got},
	}
}

func NewMalformedSnapshot(msg string) *Error {
	return &Error{Code: CodeMalformedSnapshot, Status: http.StatusUnprocessableEntity, Message: msg}
}

// NewNotFound reports a missing annotation, node or record.
func NewNotFound(what, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, id),
		Details: map[string]any{"id": id},
	}
}

func NewMalformedData(msg string) *Error {
	return &Error{Code: CodeMalformedData, Status: http.StatusUnprocessableEntity, Message: msg}
}

func NewInvalidCredentials() *Error {
	return &Error{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password"}
}

func NewNetworkFailure(msg string) *Error {
	return &Error{Code: CodeNetworkFailure, Status: http.StatusBadGateway, Message: msg}
}

func NewTimeout(op string) *Error {
	return &Error{Code: CodeTimeout, Status: http.StatusGatewayTimeout, Message: op + " timed out"}
}

func NewExpired() *Error {
	return &Error{Code: CodeExpired, Status: http.StatusUnauthorized, Message: "session expired, sign in again"}
}

func NewUnauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: "not signed in"}
}

// NewForbidden reports a missing permission for an authenticated identity.
func NewForbidden(permission string) *Error {
	return &Error{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: fmt.Sprintf("missing permission %q", permission),
		Details: map[string]any{"permission": permission},
	}
}

func NewSuperseded(op string) *Error {
	return &Error{Code: CodeSuperseded, Status: http.StatusConflict, Message: op + " superseded by a newer request"}
}

func NewUnsupportedFormat(format string) *Error {
	return &Error{Code: CodeUnsupportedFormat, Status: http.StatusBadRequest, Message: fmt.Sprintf("unsupported format %q", format)}
}

// NewInternal wraps an unexpected error.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: msg, cause: err}
}

// Is reports whether err is (or wraps) an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// From returns err as an *Error, wrapping unknown errors as INTERNAL.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal(err)
}
