// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	mode    string
	views   ViewRegistry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, mode string, views ViewRegistry) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		mode:    mode,
		views:   views,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"mode":    h.mode,
	}
	if h.views != nil {
		body["views"] = h.views.Len()
	}
	return c.JSON(http.StatusOK, body)
}
