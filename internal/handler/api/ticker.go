package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"EthTicker/internal/domain/models"
	domrepo "EthTicker/internal/domain/repository"
	xhttp "EthTicker/pkg/http"
	xlogger "EthTicker/pkg/logger"
)

// PartialHeader lists the omitted fields of a partial view.
const PartialHeader = "X-Ticker-Partial"

// TickerHandler serves the aggregated ticker view.
type TickerHandler struct {
	logger *xlogger.Logger
	views  domrepo.ViewSource
}

func NewTickerHandler(logger *xlogger.Logger, views domrepo.ViewSource) *TickerHandler {
	return &TickerHandler{logger: logger, views: views}
}

func (h *TickerHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ticker", h.Ticker)
	// sidebar widgets read the same document
	e.GET("/sidebar", h.Ticker)
}

func (h *TickerHandler) Ticker(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	view, err := h.views.Aggregate(c.Request().Context())
	var partial *models.PartialAggregationError
	switch {
	case err == nil:
	case errors.As(err, &partial):
		c.Response().Header().Set(PartialHeader, strings.Join(partial.Omitted, ","))
	case errors.Is(err, models.ErrAggregationFailed):
		return xhttp.FailedDependencyResponse(c)
	default:
		h.logger.Error("ticker aggregate error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	if req.Fiat != "" {
		code := strings.ToUpper(req.Fiat)
		if _, ok := view.Fiat[code]; !ok {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("fiat %s is not available", code).WithParam("fiat", code))
		}
		view = view.NarrowFiat(code)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=30")
	return c.JSON(http.StatusOK, view)
}
