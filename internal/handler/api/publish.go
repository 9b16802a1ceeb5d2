package api

import (
	"github.com/labstack/echo/v4"

	"EthTicker/internal/domain/models"
	xhttp "EthTicker/pkg/http"
)

// BatchTracker exposes publish batch state.
type BatchTracker interface {
	GroupNames() []string
	Snapshot() []*models.PublishBatch
}

// PublishStatusHandler reports the batches the publisher is tracking.
type PublishStatusHandler struct {
	tracker BatchTracker
}

func NewPublishStatusHandler(tracker BatchTracker) *PublishStatusHandler {
	return &PublishStatusHandler{tracker: tracker}
}

func (h *PublishStatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/publish/status", h.Status)
}

func (h *PublishStatusHandler) Status(c echo.Context) error {
	batches := h.tracker.Snapshot()
	if batches == nil {
		batches = []*models.PublishBatch{}
	}
	return xhttp.SuccessResponse(c, &models.PublishStatus{
		Groups:  h.tracker.GroupNames(),
		Batches: batches,
	})
}
