package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnavailable ErrorType = "unavailable"

	// Conditions surfaced by the analysis pipeline.
	ErrorTypeNoImageProvided       ErrorType = "no_image_provided"
	ErrorTypeUnknownModel          ErrorType = "unknown_model"
	ErrorTypeModelNotAvailable     ErrorType = "model_not_available"
	ErrorTypeUnsupportedFileType   ErrorType = "unsupported_file_type"
	ErrorTypeImageDecodeFailed     ErrorType = "image_decode_failed"
	ErrorTypeInternalAnalysisError ErrorType = "internal_analysis_error"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`

	// AvailableModels is filled for model_not_available so callers can pick another model.
	AvailableModels []string `json:"available_models,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewUnavailableError reports an optional subsystem that is switched off.
func NewUnavailableError(message string, cause error) *AppError {
	return newAppError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message, cause)
}

func NewNoImageProvidedError(message string) *AppError {
	return newAppError(ErrorTypeNoImageProvided, http.StatusBadRequest, message, nil)
}

func NewUnknownModelError(modelID string, cause error) *AppError {
	return newAppError(ErrorTypeUnknownModel, http.StatusBadRequest, fmt.Sprintf("Invalid model: %s", modelID), cause)
}

// NewModelNotAvailableError carries the ids of the models that can currently serve requests.
func NewModelNotAvailableError(modelID string, available []string, cause error) *AppError {
	e := newAppError(ErrorTypeModelNotAvailable, http.StatusNotFound,
		fmt.Sprintf("Model %s not available. Please check if model file exists.", modelID), cause)
	e.AvailableModels = available
	return e
}

func NewUnsupportedFileTypeError(message string) *AppError {
	return newAppError(ErrorTypeUnsupportedFileType, http.StatusBadRequest, message, nil)
}

func NewImageDecodeFailedError(cause error) *AppError {
	return newAppError(ErrorTypeImageDecodeFailed, http.StatusBadRequest,
		"Failed to process image. Please check image format.", cause)
}

func NewInternalAnalysisError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternalAnalysisError, http.StatusInternalServerError, message, cause)
}

// IsType checks if the error chain contains an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
