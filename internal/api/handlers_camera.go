// handlers_camera.go - Camera list, status and log day handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/storage"
)

// CameraHandlerImpl implements the CameraHandler interface
type CameraHandlerImpl struct {
	cameras dashboard.CameraLister
	views   ViewRegistry
	store   storage.Store
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(cameras dashboard.CameraLister, views ViewRegistry, store storage.Store) CameraHandler {
	return &CameraHandlerImpl{
		cameras: cameras,
		views:   views,
		store:   store,
	}
}

// HandleListCameras returns the configured cameras
func (h *CameraHandlerImpl) HandleListCameras(c echo.Context) error {
	cams, err := h.cameras.Cameras(c.Request().Context())
	if err != nil {
		return FromError("cameras", "", err)
	}
	return c.JSON(http.StatusOK, cams)
}

// HandleGetStatus returns the status panel for a camera. The first request
// for a camera loads its charts; a failed load is reported in lastError.
func (h *CameraHandlerImpl) HandleGetStatus(c echo.Context) error {
	id, err := cameraParam(c)
	if err != nil {
		return err
	}

	view := h.views.View(id)
	_, _ = view.Load(c.Request().Context())

	noStore(c)
	return c.JSON(http.StatusOK, view.Status())
}

// HandleListDays returns the days with a stored log, newest first
func (h *CameraHandlerImpl) HandleListDays(c echo.Context) error {
	id, err := cameraParam(c)
	if err != nil {
		return err
	}

	days, err := h.store.Days(id)
	if err != nil {
		return FromError("camera", id, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cameraId": id,
		"days":     days,
	})
}
