// handlers.go - Shared request helpers
package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/storage"
)

// MaxContainerWidth caps the width query parameter.
const MaxContainerWidth = 4096

// cameraParam returns the validated :id path parameter.
func cameraParam(c echo.Context) (string, error) {
	id := c.Param("id")
	if err := storage.ValidateCameraID(id); err != nil {
		return "", NewBadRequestError("invalid camera id", err)
	}
	return id, nil
}

// widthParam returns the container width from ?width=, or 0 when absent.
func widthParam(c echo.Context) (int, error) {
	raw := c.QueryParam("width")
	if raw == "" {
		return 0, nil
	}
	w, err := strconv.Atoi(raw)
	if err != nil || w <= 0 || w > MaxContainerWidth {
		return 0, NewValidationError("width")
	}
	return w, nil
}

// dayParam validates an optional YYYY-MM-DD query parameter.
func dayParam(c echo.Context, name string) (string, error) {
	day := c.QueryParam(name)
	if day == "" {
		return "", nil
	}
	if err := storage.ValidateDay(day); err != nil {
		return "", NewValidationError(name)
	}
	return day, nil
}

// today returns the current day in loc.
func today(now func() time.Time, loc *time.Location) string {
	return now().In(loc).Format(models.DayLayout)
}

// noStore disables caching of a response.
func noStore(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, "no-store, no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
}
