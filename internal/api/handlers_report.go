// handlers_report.go - History report handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/models"
)

// ReportHandlerImpl implements the ReportHandler interface
type ReportHandlerImpl struct {
	history HistoryStore
}

// NewReportHandler creates a new report handler. history may be nil, in
// which case reports are unavailable.
func NewReportHandler(history HistoryStore) ReportHandler {
	return &ReportHandlerImpl{history: history}
}

// HandleGetReport returns per-day summaries between ?from= and ?to=
func (h *ReportHandlerImpl) HandleGetReport(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("history is disabled")
	}

	id, err := cameraParam(c)
	if err != nil {
		return err
	}
	from, err := dayParam(c, "from")
	if err != nil {
		return err
	}
	to, err := dayParam(c, "to")
	if err != nil {
		return err
	}
	if from != "" && to != "" && from > to {
		return NewBadRequestError("from must not be after to", nil)
	}

	days, err := h.history.DailySummaries(c.Request().Context(), id, from, to)
	if err != nil {
		return NewInternalError("failed to query history", err)
	}
	if days == nil {
		days = []models.DailySummary{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cameraId": id,
		"from":     from,
		"to":       to,
		"days":     days,
	})
}
