package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes grouped by the class of failure they represent.
const (
	// Validation: missing or malformed input
	ErrCodeMissingFields            ErrorCode = "MISSING_FIELDS"
	ErrCodePasswordTooShort         ErrorCode = "PASSWORD_TOO_SHORT"
	ErrCodePasswordTooLong          ErrorCode = "PASSWORD_TOO_LONG"
	ErrCodeInvalidEmail             ErrorCode = "INVALID_EMAIL"
	ErrCodePasswordMismatch         ErrorCode = "PASSWORD_MISMATCH"
	ErrCodeCurrentPasswordIncorrect ErrorCode = "CURRENT_PASSWORD_INCORRECT"
	ErrCodeResetTokenInvalid        ErrorCode = "RESET_TOKEN_INVALID"

	// Credential: unauthenticated, bad password, bad or missing session
	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeFederatedLoginRequired ErrorCode = "FEDERATED_LOGIN_REQUIRED"

	// Conflict: duplicate email or federated id
	ErrCodeAlreadyExists         ErrorCode = "ALREADY_EXISTS"
	ErrCodePasswordLoginRequired ErrorCode = "PASSWORD_LOGIN_REQUIRED"

	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Dependency: store, mail or provider failures
	ErrCodeDependencyFailed ErrorCode = "DEPENDENCY_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// GenericMessage is what callers see for dependency and internal failures.
const GenericMessage = "Something went wrong, please try again later"

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// PublicMessage is the message safe to show a caller. Dependency and
// internal failures collapse to GenericMessage.
func (e *Error) PublicMessage() string {
	if IsDependencyCode(e.Code) {
		return GenericMessage
	}
	return e.Message
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// From returns the structured Error in err's chain, or wraps err as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrCodeInternal, GenericMessage)
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch {
	case IsValidationCode(code):
		return http.StatusBadRequest
	case IsCredentialCode(code):
		return http.StatusUnauthorized
	case IsConflictCode(code):
		return http.StatusConflict
	case code == ErrCodeNotFound:
		return http.StatusNotFound
	case code == ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func IsValidationCode(code ErrorCode) bool {
	switch code {
	case ErrCodeMissingFields, ErrCodePasswordTooShort, ErrCodePasswordTooLong, ErrCodeInvalidEmail,
		ErrCodePasswordMismatch, ErrCodeCurrentPasswordIncorrect, ErrCodeResetTokenInvalid:
		return true
	}
	return false
}

func IsCredentialCode(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidCredentials, ErrCodeUnauthorized, ErrCodeFederatedLoginRequired:
		return true
	}
	return false
}

func IsConflictCode(code ErrorCode) bool {
	return code == ErrCodeAlreadyExists || code == ErrCodePasswordLoginRequired
}

func IsDependencyCode(code ErrorCode) bool {
	return code == ErrCodeDependencyFailed || code == ErrCodeInternal
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return isClass(err, IsValidationCode) }

// IsCredential reports whether err is a CredentialError.
func IsCredential(err error) bool { return isClass(err, IsCredentialCode) }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool { return isClass(err, IsConflictCode) }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return IsCode(err, ErrCodeNotFound) }

// IsRateLimited reports whether err is a RateLimitedError.
func IsRateLimited(err error) bool { return IsCode(err, ErrCodeRateLimitExceeded) }

// IsDependency reports whether err is a DependencyError. Unstructured errors count.
func IsDependency(err error) bool {
	if err == nil {
		return false
	}
	return IsDependencyCode(GetCode(err))
}

func isClass(err error, pred func(ErrorCode) bool) bool {
	var e *Error
	if errors.As(err, &e) {
		return pred(e.Code)
	}
	return false
}

// Common error constructors for frequently used errors

// Validation creates a ValidationError with the given code.
func Validation(code ErrorCode, message string) *Error {
	return New(code, message)
}

// Credential creates a CredentialError with the given code.
func Credential(code ErrorCode, message string) *Error {
	return New(code, message)
}

// AlreadyExists creates a ConflictError for a duplicate identity.
func AlreadyExists(message string) *Error {
	return New(ErrCodeAlreadyExists, message)
}

// NotFound creates a "not found" error
func NotFound(resourceType string) *Error {
	return Newf(ErrCodeNotFound, "%s not found", resourceType)
}

// Unauthorized creates an "unauthorized" error
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Dependency wraps a transport or store failure.
func Dependency(err error, message string) *Error {
	return Wrap(err, ErrCodeDependencyFailed, message)
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// RateLimitExceeded creates a "rate limit exceeded" error carrying the retry hint.
func RateLimitExceeded(retryAfter time.Duration) *Error {
	return New(ErrCodeRateLimitExceeded, "Too many requests, please try again later").
		WithDetail("retry_after", retryAfter)
}

// RetryAfter returns the retry hint carried by a RateLimitedError.
func RetryAfter(err error) (time.Duration, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrCodeRateLimitExceeded {
		return 0, false
	}
	d, ok := e.Details["retry_after"].(time.Duration)
	return d, ok
}
