// Package autherr defines the error taxonomy of the authentication bridge.
//
// Four codes cover every failure the login flows can surface:
//
//   - ValidationError: malformed input (missing cardId), recovered locally.
//   - AuthenticationError: the federated assertion failed protocol validation.
//   - AuthorizationError: the assertion was valid but does not correspond to
//     the scanned card.
//   - SessionError: a fallback token failed signature verification; treated
//     as "no session", never as ambiguous-but-valid.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the error class in structured responses
type Code string

const (
	CodeValidation     Code = "ValidationError"
	CodeAuthentication Code = "AuthenticationError"
	CodeAuthorization  Code = "AuthorizationError"
	CodeSession        Code = "SessionError"
)

// Error is a classified authentication-flow error. Target names the offending
// field or subject where one exists.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target: %s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Status maps the error class to an HTTP status code
func (e *Error) Status() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeSession:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a ValidationError for a named field
func Validation(target, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Target: target}
}

// Authentication creates an AuthenticationError wrapping the protocol failure
func Authentication(message string, cause error) *Error {
	return &Error{Code: CodeAuthentication, Message: message, cause: cause}
}

// Authorization creates an AuthorizationError for a named subject
func Authorization(target, message string) *Error {
	return &Error{Code: CodeAuthorization, Message: message, Target: target}
}

// Session creates a SessionError wrapping the verification failure
func Session(message string, cause error) *Error {
	return &Error{Code: CodeSession, Message: message, cause: cause}
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
