package errors

import "fmt"

// ErrorCode represents a PromptForge error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"        // 404
	ErrProvider       ErrorCode = "PROVIDER_ERROR"   // 502
	ErrGeneration     ErrorCode = "GENERATION_ERROR" // 502
	ErrStorage        ErrorCode = "STORAGE"          // 500
	ErrInternal       ErrorCode = "INTERNAL"         // 500
)

// ForgeError represents a structured error with code, status, and details.
type ForgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ForgeError {
	return &ForgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a template cannot be found.
func NewNotFound(identifier string) *ForgeError {
	return &ForgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("template not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewProvider creates a 502 error for a failed model provider call.
func NewProvider(provider string, err error) *ForgeError {
	msg := "provider call failed"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrProvider,
		Status:  502,
		Message: fmt.Sprintf("%s: %s", provider, msg),
		Details: map[string]any{"provider": provider},
	}
}

// NewGeneration creates a 502 error for a model reply that could not be
// interpreted as the required structured shape.
func NewGeneration(err error) *ForgeError {
	msg := "generation failed"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrGeneration,
		Status:  502,
		Message: msg,
	}
}

// NewStorage creates a 500 error for an underlying persistence failure.
func NewStorage(err error) *ForgeError {
	msg := "storage error"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ForgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a ForgeError with the given code.
func Is(err error, code ErrorCode) bool {
	if fErr, ok := err.(*ForgeError); ok {
		return fErr.Code == code
	}
	return false
}
