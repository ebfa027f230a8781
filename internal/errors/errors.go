package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a jnmcp error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"          // 404
	ErrHandleExpired    ErrorCode = "HANDLE_EXPIRED"     // 410
	ErrResponseTooLarge ErrorCode = "RESPONSE_TOO_LARGE" // 413
	ErrInternal         ErrorCode = "INTERNAL"           // 500
	ErrUpstream         ErrorCode = "UPSTREAM_ERROR"     // 502
	ErrCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"  // 503, logged only, never surfaced
)

// JNError represents a structured error with code, status, and details.
type JNError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *JNError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *JNError {
	return &JNError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a record or handle that does not exist.
func NewNotFound(identifier string) *JNError {
	return &JNError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewHandleExpired creates a 410 error for a result handle past its TTL.
// Expiry and never-existed are indistinguishable to the caller; both are
// terminal and non-retryable.
func NewHandleExpired(handle string) *JNError {
	return &JNError{
		Code:    ErrHandleExpired,
		Status:  410,
		Message: fmt.Sprintf("result handle expired or unknown: %s", handle),
		Details: map[string]any{"handle": handle},
	}
}

// NewResponseTooLarge creates a 413 error when a payload exceeds the inline
// ceiling and handle storage also failed.
func NewResponseTooLarge(sizeBytes, ceiling int) *JNError {
	return &JNError{
		Code:    ErrResponseTooLarge,
		Status:  413,
		Message: fmt.Sprintf("response exceeds inline ceiling: %d bytes (max %d)", sizeBytes, ceiling),
		Details: map[string]any{"size_bytes": sizeBytes, "ceiling_bytes": ceiling},
	}
}

// NewUpstream creates a 502 error for a failed JobNimbus API call.
func NewUpstream(endpoint string, err error) *JNError {
	msg := "upstream request failed"
	if err != nil {
		msg = err.Error()
	}
	return &JNError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"endpoint": endpoint},
	}
}

// NewUpstreamStatus creates a 502 error for a non-2xx upstream response.
func NewUpstreamStatus(endpoint string, status int) *JNError {
	return &JNError{
		Code:    ErrUpstream,
		Status:  502,
		Message: fmt.Sprintf("upstream returned status %d", status),
		Details: map[string]any{"endpoint": endpoint, "upstream_status": status},
	}
}

// NewCacheUnavailable creates a 503 error for an unreachable cache store.
// The cache wrapper logs this and falls through to compute; it is never
// returned to a tool caller.
func NewCacheUnavailable(err error) *JNError {
	msg := "cache store unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &JNError{
		Code:    ErrCacheUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for
// logging so it never leaks to a caller.
func NewInternal(err error) *JNError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &JNError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a JNError with the given code.
func Is(err error, code ErrorCode) bool {
	var jnErr *JNError
	if stderrors.As(err, &jnErr) {
		return jnErr.Code == code
	}
	return false
}
