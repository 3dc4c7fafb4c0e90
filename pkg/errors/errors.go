package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeFetch           ErrorType = "fetch"
	ErrorTypeStateCorruption ErrorType = "state_corruption"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeParsing         ErrorType = "parsing"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error is a typed error carrying the recipe it relates to, if any
type Error struct {
	Type     ErrorType
	Message  string
	RecipeID string
	Code     int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.RecipeID != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.RecipeID)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around an existing one
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// Auth reports that the platform rejected the credentials or the login flow failed
func Auth(message string, err error) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message, Err: err}
}

// Fetch reports a recoverable failure retrieving a single recipe
func Fetch(recipeID, message string, err error) *Error {
	return &Error{Type: ErrorTypeFetch, RecipeID: recipeID, Message: message, Err: err}
}

// Config reports invalid or missing configuration
func Config(message string) *Error {
	return &Error{Type: ErrorTypeConfig, Message: message}
}

// StateCorruption reports a fetched entry without a usable artifact
func StateCorruption(recipeID, message string) *Error {
	return &Error{Type: ErrorTypeStateCorruption, RecipeID: recipeID, Message: message}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsAuth reports whether err is an authentication failure
func IsAuth(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeAuth
}

// IsConfig reports whether err is a configuration failure
func IsConfig(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeConfig
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeFetch, ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeParsing:
		return true
	case ErrorTypeAuth, ErrorTypeConfig, ErrorTypeNotFound, ErrorTypeStateCorruption:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}

// TypeForStatusCode maps an HTTP status code onto an error type
func TypeForStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
