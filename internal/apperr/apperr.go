// Package apperr defines the error taxonomy shared by handlers, caches and
// workers, and the Echo error handler that renders it.
package apperr

import (
	"errors"
	"net/http"
)

// ApiError is a named, status-carrying error. Name is stable and machine
// readable; Message is safe to show to the caller.
type ApiError struct {
	Name    string `json:"name"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *ApiError) Error() string {
	if e.Message != "" {
		return e.Name + ": " + e.Message
	}
	return e.Name
}

// New builds an ApiError. When message is omitted the name doubles as the
// user-visible message.
func New(name string, status int, message ...string) *ApiError {
	msg := name
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	return &ApiError{Name: name, Status: status, Message: msg}
}

// Well-known error constructors. Status codes follow conventional REST
// semantics; RedisError and QueueError surface dependency failures as 500s.
func Validation(message string) *ApiError {
	return New("ValidationError", http.StatusBadRequest, message)
}

func Unauthorized(message string) *ApiError {
	return New("AuthenticationError", http.StatusUnauthorized, message)
}

func Forbidden(message string) *ApiError {
	return New("AuthorizationError", http.StatusForbidden, message)
}

func NotFound(name, message string) *ApiError {
	return New(name, http.StatusNotFound, message)
}

func Conflict(name, message string) *ApiError {
	return New(name, http.StatusConflict, message)
}

func Redis() *ApiError {
	return New("RedisError", http.StatusInternalServerError, "cache store unavailable")
}

func Queue() *ApiError {
	return New("QueueError", http.StatusInternalServerError, "job queue unavailable")
}

// As unwraps err into an *ApiError if possible.
func As(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
