// Package errors provides the event engine's error taxonomy: a structured
// AppError carrying a machine-readable code and HTTP status, plus
// sentinel errors for the common failure kinds so callers can use
// errors.Is/errors.As instead of string matching.
//
// Import Path: github.com/eventstore/eventcore/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error taxonomy from the engine's error handling design:
// InvalidArgument, NotFound, Conflict, ValidationFailure, Storage,
// Config, RemoteDeliveryFailure.
type Kind string

const (
	KindInvalidArgument       Kind = "INVALID_ARGUMENT"
	KindNotFound              Kind = "NOT_FOUND"
	KindConflict              Kind = "CONFLICT"
	KindValidationFailure     Kind = "VALIDATION_FAILURE"
	KindStorage               Kind = "STORAGE"
	KindConfig                Kind = "CONFIG"
	KindRemoteDeliveryFailure Kind = "REMOTE_DELIVERY_FAILURE"
)

// AppError is a structured application error with an HTTP status and a
// stable machine-readable code.
type AppError struct {
	// Kind is the broad error taxonomy bucket (see errors taxonomy above).
	Kind Kind `json:"-"`

	// Code is a machine-readable error code (e.g., "TOPIC_NOT_FOUND").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// HTTPStatus is the corresponding HTTP status code.
	HTTPStatus int `json:"-"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is lets a wrapped, enriched copy still match errors.Is(err, ErrXNotFound):
// comparison is by Code alone, ignoring Err and Message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(kind Kind, code, message string, httpStatus int) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps an existing error into an AppError.
func Wrap(kind Kind, err error, code, message string, httpStatus int) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Common error constructors, one per taxonomy kind.

// InvalidArgument creates a 400 InvalidArgument error.
func InvalidArgument(code, message string) *AppError {
	return New(KindInvalidArgument, code, message, http.StatusBadRequest)
}

// NotFound creates a 404 NotFound error.
func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message, http.StatusNotFound)
}

// Conflict creates a 409 Conflict error.
func Conflict(code, message string) *AppError {
	return New(KindConflict, code, message, http.StatusConflict)
}

// ValidationFailure creates a 422 ValidationFailure error.
func ValidationFailure(code, message string, err error) *AppError {
	return Wrap(KindValidationFailure, err, code, message, http.StatusUnprocessableEntity)
}

// Storage creates a 500 Storage error wrapping the underlying I/O cause.
func Storage(code, message string, err error) *AppError {
	return Wrap(KindStorage, err, code, message, http.StatusInternalServerError)
}

// Config creates a 500 Config error wrapping the underlying cause.
func Config(code, message string, err error) *AppError {
	return Wrap(KindConfig, err, code, message, http.StatusInternalServerError)
}

// RemoteDeliveryFailure creates a 502 RemoteDeliveryFailure error wrapping
// the HTTP client/transport cause.
func RemoteDeliveryFailure(code, message string, err error) *AppError {
	return Wrap(KindRemoteDeliveryFailure, err, code, message, http.StatusBadGateway)
}

// Sentinel errors for the common NotFound / Conflict cases used across the
// engine, matched with errors.Is.
var (
	ErrTopicNotFound      = NotFound("TOPIC_NOT_FOUND", "topic not found")
	ErrTopicAlreadyExists = Conflict("TOPIC_ALREADY_EXISTS", "topic already exists")
	ErrConsumerNotFound   = NotFound("CONSUMER_NOT_FOUND", "consumer not found")
	ErrEventNotFound      = NotFound("EVENT_NOT_FOUND", "event not found")
)

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
