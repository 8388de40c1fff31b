// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/excel-to-json/backend/internal/convert"
	"github.com/excel-to-json/backend/internal/session"
	"github.com/excel-to-json/backend/internal/source"
	"github.com/excel-to-json/backend/internal/viewer"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewBusyError creates a 409 error for a session with a request in flight
func NewBusyError() *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "BUSY",
		Message: "a request is already in flight for this session",
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnsupportedSourceError creates a 422 error for a URL no rule matches
func NewUnsupportedSourceError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "UNSUPPORTED_SOURCE_TYPE",
		Message: "Unsupported File Type.",
		Details: cause.Error(),
	}
}

// NewUpstreamError creates a 502 error for a failed remote call
func NewUpstreamError(code, message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadGateway,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// FromDomainError maps session, source and conversion errors to API errors.
func FromDomainError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, session.ErrBusy):
		return NewBusyError()
	case errors.Is(err, session.ErrDiscarded):
		return NewConflictError("the request was superseded by a reset or a new file")
	case errors.Is(err, source.ErrUnsupportedSourceType):
		return NewUnsupportedSourceError(err)
	case errors.Is(err, source.ErrRemoteFetchFailed):
		return NewUpstreamError("REMOTE_FETCH_FAILED", err.Error(), nil)
	case errors.Is(err, convert.ErrConversionRequestFailed):
		return NewUpstreamError("CONVERSION_FAILED", "the conversion backend did not return a document", err)
	case errors.Is(err, viewer.ErrUnknownFormat):
		return NewBadRequestError("unknown download format", err)
	}
	return NewInternalError("request failed", err)
}

// showErrorDetails controls whether unexpected errors expose their message
var showErrorDetails = true

// SetShowErrorDetails toggles error details for unexpected errors.
// Production deployments turn this off.
func SetShowErrorDetails(show bool) {
	showErrorDetails = show
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if showErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
