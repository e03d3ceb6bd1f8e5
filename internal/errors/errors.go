// Package errors provides the application error type used across the
// transcriber service, with machine-readable codes and HTTP status mapping.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// --- Common Error Constructors ---

// NotReady indicates the inference engine has not finished loading.
func NotReady() *AppError {
	return &AppError{
		Code: ErrCodeNotReady, Message: "Transcriber not ready",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// AudioNotFound indicates the requested audio object does not exist in blob storage.
func AudioNotFound(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("Audio file not found: %s", key),
		HTTPStatus: http.StatusNotFound, Cause: cause,
	}
}

// Conversion indicates the external audio converter exited non-zero.
// stderr is carried verbatim for diagnostics.
func Conversion(stderr string) *AppError {
	return &AppError{
		Code: ErrCodeConversion, Message: fmt.Sprintf("Audio conversion failed: %s", stderr),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Engine indicates a failure in the inference engine.
func Engine(cause error) *AppError {
	return &AppError{
		Code: ErrCodeEngine, Message: "Transcription failed",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Storage indicates a blob store or key-value store I/O failure.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("Storage operation failed: %s", op),
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Validation indicates a malformed request.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal indicates an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "Internal error",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
