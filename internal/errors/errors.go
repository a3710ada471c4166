package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a marketer error code.
type ErrorCode string

const (
	ErrSetup          ErrorCode = "SETUP_ERROR"     // fatal, exit 1
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrParse          ErrorCode = "PARSE_ERROR"     // 422
	ErrRateLimited    ErrorCode = "RATE_LIMITED"    // 429
	ErrDataCorruption ErrorCode = "DATA_CORRUPTION" // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrNetwork        ErrorCode = "NETWORK_ERROR"   // 502
	ErrHTTP           ErrorCode = "HTTP_ERROR"      // 502
	ErrJobFailed      ErrorCode = "JOB_FAILED"      // 502
	ErrTimeout        ErrorCode = "TIMEOUT"         // 504
)

// MarketerError represents a structured error with code, status, and details.
type MarketerError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *MarketerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MarketerError) Unwrap() error {
	return e.Err
}

// NewSetup creates a fatal error for a missing credential, file, or bad configuration.
func NewSetup(msg string) *MarketerError {
	return &MarketerError{
		Code:    ErrSetup,
		Status:  500,
		Message: msg,
	}
}

// NewMissingCredentials creates a setup error listing every missing credential.
func NewMissingCredentials(names []string) *MarketerError {
	return &MarketerError{
		Code:    ErrSetup,
		Status:  500,
		Message: fmt.Sprintf("missing required credentials: %v", names),
		Details: map[string]any{"missing": names},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MarketerError {
	return &MarketerError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for failed admin authentication.
func NewUnauthorized(msg string) *MarketerError {
	return &MarketerError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing date record or resource.
func NewNotFound(identifier string) *MarketerError {
	return &MarketerError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewParse creates a 422 error for an upstream reply that could not be decoded.
func NewParse(source string, err error) *MarketerError {
	return &MarketerError{
		Code:    ErrParse,
		Status:  422,
		Message: fmt.Sprintf("failed to parse %s response: %v", source, err),
		Details: map[string]any{"source": source},
		Err:     err,
	}
}

// NewRateLimited creates a 429 error.
func NewRateLimited() *MarketerError {
	return &MarketerError{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "too many requests, slow down",
	}
}

// NewDataCorruption creates an error for a persisted store that cannot be read back.
func NewDataCorruption(path string, err error) *MarketerError {
	return &MarketerError{
		Code:    ErrDataCorruption,
		Status:  500,
		Message: fmt.Sprintf("store file %s is corrupt: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewNetwork creates a 502 error for a transport-level failure talking to service.
func NewNetwork(service string, err error) *MarketerError {
	return &MarketerError{
		Code:    ErrNetwork,
		Status:  502,
		Message: fmt.Sprintf("%s request failed: %v", service, err),
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// NewHTTP creates a 502 error for a non-2xx upstream response.
func NewHTTP(service string, status int, body string) *MarketerError {
	if len(body) > 300 {
		body = body[:300]
	}
	return &MarketerError{
		Code:    ErrHTTP,
		Status:  502,
		Message: fmt.Sprintf("%s returned HTTP %d: %s", service, status, body),
		Details: map[string]any{"service": service, "upstream_status": status},
	}
}

// NewJobFailed creates a 502 error for an asynchronous upstream job that reported failure.
func NewJobFailed(service, id, reason string) *MarketerError {
	return &MarketerError{
		Code:    ErrJobFailed,
		Status:  502,
		Message: fmt.Sprintf("%s job %s failed: %s", service, id, reason),
		Details: map[string]any{"service": service, "job_id": id},
	}
}

// NewTimeout creates a 504 error for a bounded wait that ran out.
func NewTimeout(what string) *MarketerError {
	return &MarketerError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("timed out waiting for %s", what),
		Details: map[string]any{"operation": what},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MarketerError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MarketerError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is a MarketerError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MarketerError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As returns the MarketerError in err's chain, or nil.
func As(err error) *MarketerError {
	var mErr *MarketerError
	if stderrors.As(err, &mErr) {
		return mErr
	}
	return nil
}
