// handlers_history.go - Conversion history handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// maxRecentLimit caps the limit query parameter
const maxRecentLimit = 200

// HistoryHandlerImpl implements the HistoryHandler interface
type HistoryHandlerImpl struct {
	history HistoryReader
}

// NewHistoryHandler creates a history handler. A nil reader reports history as disabled.
func NewHistoryHandler(history HistoryReader) HistoryHandler {
	return &HistoryHandlerImpl{history: history}
}

// HandleRecentConversions returns the latest conversions
// Query: limit (default 20, max 200)
func (h *HistoryHandlerImpl) HandleRecentConversions(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("conversion history is disabled")
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewBadRequestError("limit must be a positive integer", err)
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	ctx := c.Request().Context()
	records, err := h.history.Recent(ctx, limit)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	total, failed, err := h.history.Count(ctx)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	if records == nil {
		records = []models.ConversionRecord{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversions": records,
		"total":       total,
		"failed":      failed,
	})
}
