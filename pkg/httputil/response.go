// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding and request middleware.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/presenza/presenza/pkg/autherr"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the structured error payload returned by every endpoint
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Target  string `json:"target,omitempty"`
}

// WriteAuthError writes a classified error with its taxonomy status code
func WriteAuthError(w http.ResponseWriter, err *autherr.Error) {
	WriteJSON(w, err.Status(), ErrorResponse{
		Code:    string(err.Code),
		Message: err.Message,
		Target:  err.Target,
	})
}

// WriteError classifies err if possible, otherwise answers 500
func WriteError(w http.ResponseWriter, err error) {
	if authErr, ok := autherr.As(err); ok {
		WriteAuthError(w, authErr)
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Code:    "InternalError",
		Message: err.Error(),
	})
}

// WriteValidationError writes a 400 with a ValidationError payload
func WriteValidationError(w http.ResponseWriter, target, message string) {
	WriteAuthError(w, autherr.Validation(target, message))
}

// WriteSuccess writes a 200 OK with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a 204 No Content
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
