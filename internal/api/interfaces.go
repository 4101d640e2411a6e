// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/models"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CameraHandler handles camera listing and per-camera state
type CameraHandler interface {
	HandleListCameras(c echo.Context) error
	HandleGetStatus(c echo.Context) error
	HandleListDays(c echo.Context) error
}

// ChartHandler handles chart data, images and refreshes
type ChartHandler interface {
	HandleGetCharts(c echo.Context) error
	HandleGetChartsMsgpack(c echo.Context) error
	HandleGetChartImage(c echo.Context) error
	HandleRefresh(c echo.Context) error
}

// LogHandler handles raw objects log files
type LogHandler interface {
	HandleUploadLog(c echo.Context) error
	HandleServeLog(c echo.Context) error
}

// ReportHandler handles history reports
type ReportHandler interface {
	HandleGetReport(c echo.Context) error
}

// ViewRegistry hands out per-camera chart views.
// This allows mocking in tests
type ViewRegistry interface {
	View(cameraID string) *dashboard.Charts
	Lookup(cameraID string) (*dashboard.Charts, bool)
	Len() int
}

// HistoryStore reads and writes the record history
type HistoryStore interface {
	Ingest(ctx context.Context, cameraID, day string, records []models.LogRecord) error
	DailySummaries(ctx context.Context, cameraID, from, to string) ([]models.DailySummary, error)
}

// Recorder receives counters from handlers
type Recorder interface {
	ChartRendered(chart, format string)
	LogUploaded()
}

type noopRecorder struct{}

func (noopRecorder) ChartRendered(string, string) {}
func (noopRecorder) LogUploaded()                 {}
