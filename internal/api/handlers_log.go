// handlers_log.go - Objects log upload and static serving
package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/parser"
	"github.com/smart-distancing/dashboard/internal/storage"
)

// MaxUploadBytes caps an uploaded daily log.
const MaxUploadBytes = 64 << 20

// LogHandlerImpl implements the LogHandler interface
type LogHandlerImpl struct {
	store    storage.Store
	history  HistoryStore
	views    ViewRegistry
	recorder Recorder
	now      func() time.Time
	loc      *time.Location
	log      zerolog.Logger
}

// NewLogHandler creates a new log handler. history may be nil.
func NewLogHandler(store storage.Store, history HistoryStore, views ViewRegistry, recorder Recorder, loc *time.Location) *LogHandlerImpl {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &LogHandlerImpl{
		store:    store,
		history:  history,
		views:    views,
		recorder: recorder,
		now:      time.Now,
		loc:      loc,
		log:      logger.For("logs"),
	}
}

// HandleUploadLog stores an objects log for a camera day (multipart "file",
// form "date", default today). The file must parse as an objects log.
func (h *LogHandlerImpl) HandleUploadLog(c echo.Context) error {
	id, err := cameraParam(c)
	if err != nil {
		return err
	}

	day := c.FormValue("date")
	if day == "" {
		day = today(h.now, h.loc)
	}
	if err := storage.ValidateDay(day); err != nil {
		return NewValidationError("date")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("missing file", err)
	}
	if fh.Size > MaxUploadBytes {
		return NewBadRequestError("file too large", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		return NewInternalError("failed to read upload", err)
	}
	if len(data) > MaxUploadBytes {
		return NewBadRequestError("file too large", nil)
	}

	records, err := parser.ParseObjectsLog(bytes.NewReader(data))
	if err != nil {
		return NewBadRequestError("file is not a valid objects log", err)
	}

	info, err := h.store.Save(id, day, bytes.NewReader(data))
	if err != nil {
		return FromError("camera", id, err)
	}
	h.recorder.LogUploaded()

	if h.history != nil {
		if err := h.history.Ingest(c.Request().Context(), id, day, records); err != nil {
			h.log.Warn().Err(err).Str("camera_id", id).Str("day", day).Msg("history ingest failed")
		}
	}

	// an upload for today replaces what the live view shows
	if day == today(h.now, h.loc) && h.views != nil {
		if view, ok := h.views.Lookup(id); ok {
			if _, err := view.Refresh(c.Request().Context()); err != nil {
				h.log.Warn().Err(err).Str("camera_id", id).Msg("refresh after upload failed")
			}
		}
	}

	h.log.Info().Str("camera_id", id).Str("day", day).Int("records", len(records)).Int64("bytes", info.Size).Msg("log uploaded")
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"file":    info,
		"records": len(records),
	})
}

// HandleServeLog serves a stored daily log the way the analytics backend
// does, with caching disabled.
func (h *LogHandlerImpl) HandleServeLog(c echo.Context) error {
	id, err := cameraParam(c)
	if err != nil {
		return err
	}
	file := c.Param("file")
	if !strings.HasSuffix(file, ".csv") {
		return NewNotFoundError("objects log", id+"/"+file)
	}
	day := strings.TrimSuffix(file, ".csv")

	path, err := h.store.GetFilePath(id, day)
	if err != nil {
		return FromError("objects log", id+"/"+file, err)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewNotFoundError("objects log", id+"/"+file)
		}
		return NewInternalError("failed to read objects log", err)
	}

	noStore(c)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	return c.File(path)
}
