package errors

import stderrors "errors"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	// ErrCodeNotReady indicates the inference engine is not loaded.
	ErrCodeNotReady ErrorCode = "NOT_READY"
	// ErrCodeNotFound indicates the requested audio object is missing.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConversion indicates the audio converter failed.
	ErrCodeConversion ErrorCode = "CONVERSION_FAILED"
	// ErrCodeEngine indicates an inference failure.
	ErrCodeEngine ErrorCode = "ENGINE_ERROR"
	// ErrCodeStorage indicates a blob or key-value store I/O failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeInvalidInput indicates a malformed request.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
