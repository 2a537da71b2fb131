package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Wrap them with %w and HTTPStatus still maps the result.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
)

// kinds maps each sentinel to its status and wire code, checked in order.
var kinds = []struct {
	err    error
	status int
	code   string
}{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
}

// AppError is an error with a client-facing code and message.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(kind error, message string, cause error) *AppError {
	status, code := Classify(kind)
	err := kind
	if cause != nil {
		err = errors.Join(kind, cause)
	}
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id), nil)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message, nil)
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message, nil)
}

// Unavailable creates a 503 error for a dependency that cannot be reached.
// cause stays reachable through errors.Is.
func Unavailable(message string, cause error) *AppError {
	return newAppError(ErrServiceUnavail, message, cause)
}

// Classify returns the HTTP status and wire code for err. An AppError keeps
// its own; wrapped sentinels map through kinds; anything else is a 500.
func Classify(err error) (status int, code string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	status, _ := Classify(err)
	return status
}
