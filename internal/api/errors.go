// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/fetch"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/storage"
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

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewBadGatewayError creates a 502 error for a failed upstream fetch
func NewBadGatewayError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadGateway,
		Code:    "UPSTREAM_ERROR",
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

// FromError maps domain errors onto API errors. what names the resource
// for not-found messages.
func FromError(what, id string, err error) *APIError {
	var apiErr *APIError
	var urlErr *url.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, storage.ErrInvalidName):
		return NewBadRequestError("invalid camera id or date", err)
	case errors.Is(err, chart.ErrUnknownFormat):
		return NewBadRequestError("unsupported image format", err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, fetch.ErrNotFound):
		e := NewNotFoundError(what, id)
		e.Details = err.Error()
		return e
	case errors.Is(err, dashboard.ErrSuperseded):
		return NewConflictError("refresh superseded by a newer request")
	case errors.Is(err, fetch.ErrUpstreamStatus), errors.Is(err, fetch.ErrLogTooLarge),
		errors.Is(err, context.DeadlineExceeded), errors.As(err, &urlErr):
		return NewBadGatewayError("failed to fetch "+what, err)
	default:
		return NewInternalError("failed to load "+what, err)
	}
}

// NewErrorHandler returns the Echo error handler. Details of unexpected
// errors are only exposed when showDetails is set.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(devMode)
func NewErrorHandler(showDetails bool) echo.HTTPErrorHandler {
	log := logger.For("api")
	return func(err error, c echo.Context) {
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
			if showDetails {
				apiErr.Details = err.Error()
			}
		}

		if apiErr.Status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Int("status", apiErr.Status).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
