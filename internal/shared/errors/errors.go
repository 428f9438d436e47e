package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for the document gateway
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict   ErrorType = "CONFLICT_ERROR"
	ErrorTypeStore      ErrorType = "STORE_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

// Sentinel errors returned by document store implementations
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentExists      = errors.New("document already exists")
	ErrInvalidDocumentID   = errors.New("invalid document ID")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrUnsupportedQuery    = errors.New("unsupported query")
	ErrStoreNotInitialized = errors.New("document store not initialized")
)

// AppError represents a custom application error with context
type AppError struct {
	Type      ErrorType              `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	HTTPCode  int                    `json:"-"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Component string                 `json:"component,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, httpCode int) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		HTTPCode: httpCode,
		Details:  make(map[string]interface{}),
	}
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithComponent adds the component name
func (e *AppError) WithComponent(component string) *AppError {
	e.Component = component
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error. Validation errors are raised
// before any call reaches the remote store.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrorTypeConflict, message, http.StatusConflict)
}

// NewStoreError creates an error for any other failure reported by the remote store
func NewStoreError(message string) *AppError {
	return NewAppError(ErrorTypeStore, message, http.StatusBadGateway)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// Classify converts any error coming back from a store into an AppError with
// the matching type. The message is the original error text.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return NewAppError(ErrorTypeNotFound, err.Error(), http.StatusNotFound).WithCause(err)
	case errors.Is(err, ErrDocumentExists):
		return NewAppError(ErrorTypeConflict, err.Error(), http.StatusConflict).WithCause(err)
	case errors.Is(err, ErrInvalidDocumentID), errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrUnsupportedQuery):
		return NewAppError(ErrorTypeValidation, err.Error(), http.StatusBadRequest).WithCause(err)
	default:
		return NewStoreError(err.Error()).WithCause(err)
	}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeNotFound {
		return true
	}
	return errors.Is(err, ErrDocumentNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeConflict {
		return true
	}
	return errors.Is(err, ErrDocumentExists)
}
