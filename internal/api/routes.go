// routes.go - Route registration helpers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Cameras  dashboard.CameraLister
	Views    ViewRegistry
	Logs     dashboard.LogSource
	Store    storage.Store
	History  HistoryStore
	Renderer *chart.Renderer
	Recorder Recorder
	Hub      *Hub
	Metrics  http.Handler
	Location *time.Location
	Mode     string
	Version  string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Camera  CameraHandler
	Chart   ChartHandler
	Log     LogHandler
	Report  ReportHandler
	Hub     *Hub
	Metrics http.Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = chart.NewRenderer(deps.Location)
	}
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Mode, deps.Views),
		Camera:  NewCameraHandler(deps.Cameras, deps.Views, deps.Store),
		Chart:   NewChartHandler(deps.Views, deps.Logs, renderer, deps.Recorder, deps.Location),
		Log:     NewLogHandler(deps.Store, deps.History, deps.Views, deps.Recorder, deps.Location),
		Report:  NewReportHandler(deps.History),
		Hub:     deps.Hub,
		Metrics: deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Cameras
	apiGroup.GET("/cameras", handlers.Camera.HandleListCameras)
	apiGroup.GET("/cameras/:id/status", handlers.Camera.HandleGetStatus)
	apiGroup.GET("/cameras/:id/days", handlers.Camera.HandleListDays)

	// Charts
	apiGroup.GET("/cameras/:id/charts", handlers.Chart.HandleGetCharts)
	apiGroup.GET("/cameras/:id/charts/msgpack", handlers.Chart.HandleGetChartsMsgpack)
	apiGroup.GET("/cameras/:id/charts/:chart", handlers.Chart.HandleGetChartImage)
	apiGroup.POST("/cameras/:id/refresh", handlers.Chart.HandleRefresh)

	// Offline uploads and reports
	apiGroup.POST("/cameras/:id/logs", handlers.Log.HandleUploadLog)
	apiGroup.GET("/reports/:id", handlers.Report.HandleGetReport)

	if handlers.Hub != nil {
		apiGroup.GET("/ws", handlers.Hub.HandleWebSocket)
	}

	// Same path the analytics backend serves logs from
	e.GET("/static/data/objects_log/:id/:file", handlers.Log.HandleServeLog)

	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}
}

// SetupMiddleware configures the error handler
func SetupMiddleware(e *echo.Echo, showErrorDetails bool) {
	e.HTTPErrorHandler = NewErrorHandler(showErrorDetails)
}
