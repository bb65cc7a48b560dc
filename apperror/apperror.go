// Package apperror defines the error channel of the application.
// Every failure that can reach a client is expressed as an *AppError, which
// carries an internal diagnostic message (logged, never returned) and maps to
// an HTTP status code with a short public message drawn from a fixed table.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is an enumeration (using `iota`) of the application error categories.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// ValidationError represents missing or malformed required fields
	ValidationError
	// FormatError represents a malformed credential encoding (e.g. bad base64 in a Basic header)
	FormatError
	// AuthError represents a missing, malformed or invalid token or credential
	AuthError
	// AuthorizationError represents a valid identity acting on a resource it does not own
	AuthorizationError
	// NotFoundError represents a resource id with no match
	NotFoundError
	// DuplicateError represents a unique-field collision (username, email)
	DuplicateError
	// ConsistencyError represents an orphaned or dangling reference in the ownership graph
	ConsistencyError
	// DatabaseError represents a datastore failure; see AppError.Retryable
	DatabaseError
	// ConfigError represents an error related to application configuration
	ConfigError
	// InternalError represents a generic internal server error
	InternalError
)

var typeNames = map[ErrorType]string{
	UnknownError:       "unknown",
	ValidationError:    "validation",
	FormatError:        "format",
	AuthError:          "auth",
	AuthorizationError: "authorization",
	NotFoundError:      "not_found",
	DuplicateError:     "duplicate",
	ConsistencyError:   "consistency",
	DatabaseError:      "database",
	ConfigError:        "config",
	InternalError:      "internal",
}

// String returns a short, stable name for the error type, used in logs.
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// publicMessages is the only vocabulary ever sent to clients.
var publicMessages = map[int]string{
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Not Authorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not Found",
	http.StatusConflict:            "Conflict",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusServiceUnavailable:  "Service Unavailable",
}

// PublicMessage returns the fixed public message for an HTTP status code.
// Codes outside the table fall back to the 500 message.
func PublicMessage(status int) string {
	if msg, ok := publicMessages[status]; ok {
		return msg
	}
	return publicMessages[http.StatusInternalServerError]
}

// AppError is the custom error type for the application.
// Message is the internal diagnostic; it is logged but never written to a response.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error // Underlying error
	// Retryable marks datastore failures that may succeed if the caller tries again
	// (timeouts, dropped connections, serialization conflicts). The core never retries.
	Retryable bool
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so that errors.Is and errors.As can inspect the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError, FormatError, DuplicateError:
		return http.StatusBadRequest
	case AuthError:
		return http.StatusUnauthorized
	case AuthorizationError:
		// 401 rather than 403: a non-owner learns nothing about whether the resource exists.
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case DatabaseError:
		if e.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	case ConsistencyError, ConfigError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to the client.
func (e *AppError) PublicMessage() string {
	return PublicMessage(e.StatusCode())
}

// NewAppError creates a new AppError. This is the generic constructor behind
// the typed helpers below.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, message, underlyingError)
}

// NewFormatError creates a new FormatError
func NewFormatError(message string, underlyingError error) *AppError {
	return NewAppError(FormatError, message, underlyingError)
}

// NewAuthError creates a new AuthError (for authentication issues)
func NewAuthError(message string, underlyingError error) *AppError {
	return NewAppError(AuthError, message, underlyingError)
}

// NewAuthorizationError creates a new AuthorizationError (valid identity, wrong owner)
func NewAuthorizationError(message string, underlyingError error) *AppError {
	return NewAppError(AuthorizationError, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewDuplicateError creates a new DuplicateError
func NewDuplicateError(message string, underlyingError error) *AppError {
	return NewAppError(DuplicateError, message, underlyingError)
}

// NewConsistencyError creates a new ConsistencyError
func NewConsistencyError(message string, underlyingError error) *AppError {
	return NewAppError(ConsistencyError, message, underlyingError)
}

// NewDatabaseError creates a new DatabaseError. retryable decides between 503 and 500.
func NewDatabaseError(message string, underlyingError error, retryable bool) *AppError {
	e := NewAppError(DatabaseError, message, underlyingError)
	e.Retryable = retryable
	return e
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// ErrorResponse represents the error payload returned to API clients.
type ErrorResponse struct {
	Error string `json:"error" example:"Not Authorized"`
}

// ToResponse converts an AppError to an ErrorResponse.
// Only the public message is included, never Message or the wrapped error.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.PublicMessage()}
}

// FromError finds the first *AppError in err's chain.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// From normalizes any error into an *AppError. Errors that carry no
// *AppError in their chain become an InternalError.
func From(err error) *AppError {
	if ae, ok := FromError(err); ok {
		return ae
	}
	return NewInternalError("unexpected error", err)
}

// Helper functions to check error types through wrapped chains.

func is(err error, t ErrorType) bool {
	ae, ok := FromError(err)
	return ok && ae.Type == t
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool { return is(err, NotFoundError) }

// IsAuthError checks if an error is an AuthError (authentication problem)
func IsAuthError(err error) bool { return is(err, AuthError) }

// IsAuthorizationError checks if an error is an AuthorizationError (ownership problem)
func IsAuthorizationError(err error) bool { return is(err, AuthorizationError) }

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool { return is(err, ValidationError) }

// IsFormatError checks if an error is a Format error
func IsFormatError(err error) bool { return is(err, FormatError) }

// IsDuplicateError checks if an error is a Duplicate error
func IsDuplicateError(err error) bool { return is(err, DuplicateError) }

// IsConsistencyError checks if an error is a Consistency error
func IsConsistencyError(err error) bool { return is(err, ConsistencyError) }

// IsRetryable reports whether err is a datastore failure worth retrying.
func IsRetryable(err error) bool {
	ae, ok := FromError(err)
	return ok && ae.Type == DatabaseError && ae.Retryable
}
