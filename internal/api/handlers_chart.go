// handlers_chart.go - Chart data, image and refresh handlers
package api

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/models"
	"github.com/smart-distancing/dashboard/internal/parser"
	"github.com/vmihailenco/msgpack/v5"
)

// Chart names used in image URLs.
const (
	ChartPedestrians      = "pedestrians"
	ChartEnvironmentScore = "environment-score"
)

// ChartHandlerImpl implements the ChartHandler interface
type ChartHandlerImpl struct {
	views    ViewRegistry
	logs     dashboard.LogSource
	renderer *chart.Renderer
	recorder Recorder
	now      func() time.Time
	loc      *time.Location
}

// NewChartHandler creates a new chart handler. logs serves days other than
// today, which bypass the live view.
func NewChartHandler(views ViewRegistry, logs dashboard.LogSource, renderer *chart.Renderer, recorder Recorder, loc *time.Location) *ChartHandlerImpl {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &ChartHandlerImpl{
		views:    views,
		logs:     logs,
		renderer: renderer,
		recorder: recorder,
		now:      time.Now,
		loc:      loc,
	}
}

// charts resolves the chart set a request asks for: the live view for today,
// or a one-off build for ?date=.
func (h *ChartHandlerImpl) charts(c echo.Context) (models.ChartSet, error) {
	id, err := cameraParam(c)
	if err != nil {
		return models.ChartSet{}, err
	}
	width, err := widthParam(c)
	if err != nil {
		return models.ChartSet{}, err
	}
	day, err := dayParam(c, "date")
	if err != nil {
		return models.ChartSet{}, err
	}

	ctx := c.Request().Context()
	var set models.ChartSet
	if day != "" && day != today(h.now, h.loc) {
		set, err = h.buildDay(ctx, id, day)
		if err != nil {
			return models.ChartSet{}, FromError("objects log", id+"/"+day, err)
		}
	} else {
		set, err = h.views.View(id).Load(ctx)
		if err != nil {
			return models.ChartSet{}, FromError("objects log", id, err)
		}
	}

	// width belongs to the requesting container, never to the shared view
	if width > 0 {
		set = chart.Resize(set, width)
	}
	return set, nil
}

func (h *ChartHandlerImpl) buildDay(ctx context.Context, cameraID, day string) (models.ChartSet, error) {
	data, err := h.logs.FetchLog(ctx, cameraID, day)
	if err != nil {
		return models.ChartSet{}, err
	}
	records, err := parser.ParseObjectsLog(bytes.NewReader(data))
	if err != nil {
		return models.ChartSet{}, err
	}
	return chart.Build(records), nil
}

// HandleGetCharts returns both chart specs as JSON
func (h *ChartHandlerImpl) HandleGetCharts(c echo.Context) error {
	set, err := h.charts(c)
	if err != nil {
		return err
	}
	noStore(c)
	return c.JSON(http.StatusOK, set)
}

// HandleGetChartsMsgpack returns both chart specs as msgpack
func (h *ChartHandlerImpl) HandleGetChartsMsgpack(c echo.Context) error {
	set, err := h.charts(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(set)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	noStore(c)
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetChartImage renders one chart as PNG or SVG
func (h *ChartHandlerImpl) HandleGetChartImage(c echo.Context) error {
	name := c.Param("chart")
	if name != ChartPedestrians && name != ChartEnvironmentScore {
		return NewNotFoundError("chart", name)
	}
	format, err := chart.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return FromError("chart", name, err)
	}

	set, err := h.charts(c)
	if err != nil {
		return err
	}
	spec := set.Pedestrians
	if name == ChartEnvironmentScore {
		spec = set.EnvironmentScore
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, spec, format); err != nil {
		return NewInternalError("failed to render chart", err)
	}
	h.recorder.ChartRendered(name, string(format))

	noStore(c)
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

// HandleRefresh re-fetches today's log for a camera. On failure the
// previously published charts stay in place and the error is returned.
func (h *ChartHandlerImpl) HandleRefresh(c echo.Context) error {
	id, err := cameraParam(c)
	if err != nil {
		return err
	}
	width, err := widthParam(c)
	if err != nil {
		return err
	}

	view := h.views.View(id)
	set, err := view.Refresh(c.Request().Context())
	if err != nil {
		apiErr := FromError("objects log", id, err)
		if apiErr.Status == http.StatusInternalServerError || apiErr.Status == http.StatusNotFound {
			apiErr = NewBadGatewayError("failed to fetch objects log", err)
		}
		return apiErr
	}
	if width > 0 {
		set = chart.Resize(set, width)
	}

	noStore(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cameraId": id,
		"charts":   set,
		"status":   view.Status(),
	})
}
