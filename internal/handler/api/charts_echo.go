// Package api exposes the read endpoints over the tick/candle cache and
// the WebSocket upgrade route.
package api

import (
	"errors"

	"ChartServer/internal/chartcache"
	"ChartServer/internal/domain/models"
	"ChartServer/internal/market"
	"ChartServer/internal/resolution"
	"ChartServer/internal/stream"
	"ChartServer/internal/usecase"
	xhttp "ChartServer/pkg/http"
	xlogger "ChartServer/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ChartsEchoHandler implements the Echo-based HTTP handlers.
type ChartsEchoHandler struct {
	logger *xlogger.Logger
	charts *usecase.ChartsUseCase
	hub    *stream.Hub
}

func NewChartsEchoHandler(logger *xlogger.Logger, charts *usecase.ChartsUseCase, hub *stream.Hub) *ChartsEchoHandler {
	return &ChartsEchoHandler{logger: logger, charts: charts, hub: hub}
}

func (h *ChartsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/symbols", h.Symbols)
	g.GET("/resolutions", h.Resolutions)
	g.GET("/candles", h.Candles)
	g.GET("/candles/range", h.CandlesRange)
	g.GET("/candles/latest", h.LatestCandle)
	g.GET("/ticks", h.Ticks)
	g.GET("/ticks/range", h.TicksRange)
	g.GET("/ticks/latest", h.LatestTick)

	e.GET("/ws", h.hub.ServeWS)
}

func (h *ChartsEchoHandler) Symbols(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.charts.Symbols())
}

func (h *ChartsEchoHandler) Resolutions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.charts.Resolutions())
}

func (h *ChartsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.GetCandles(usecase.GetCandlesParams{
		Symbol:     req.Symbol,
		Resolution: req.Resolution,
		Count:      req.Count,
	})
	if err != nil {
		return h.mapError(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) CandlesRange(c echo.Context) error {
	req := &models.CandlesRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.GetCandlesRange(usecase.GetCandlesRangeParams{
		Symbol:     req.Symbol,
		Resolution: req.Resolution,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		return h.mapError(c, "candles range", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) LatestCandle(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	candle, err := h.charts.GetLatestCandle(req.Symbol)
	if err != nil {
		return h.mapError(c, "latest candle", err)
	}
	if candle == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no completed candle for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, candle)
}

func (h *ChartsEchoHandler) Ticks(c echo.Context) error {
	req := &models.TicksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.GetTicks(usecase.GetTicksParams{Symbol: req.Symbol, Count: req.Count})
	if err != nil {
		return h.mapError(c, "ticks", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) TicksRange(c echo.Context) error {
	req := &models.TicksRangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.GetTicksRange(usecase.GetTicksRangeParams{
		Symbol: req.Symbol,
		From:   req.From,
		To:     req.To,
	})
	if err != nil {
		return h.mapError(c, "ticks range", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChartsEchoHandler) LatestTick(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tick, err := h.charts.GetLatestTick(req.Symbol)
	if err != nil {
		return h.mapError(c, "latest tick", err)
	}
	if tick == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no tick for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, tick)
}

// mapError translates cache sentinels into HTTP statuses. Unknown symbols
// and resolutions are client errors; everything else is internal.
func (h *ChartsEchoHandler) mapError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, market.ErrUnknownSymbol),
		errors.Is(err, resolution.ErrUnknownResolution),
		errors.Is(err, chartcache.ErrSymbolNotFound),
		errors.Is(err, chartcache.ErrResolutionNotFound),
		errors.Is(err, chartcache.ErrInvalidTimeRange),
		errors.Is(err, chartcache.ErrNilData):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}

	h.logger.Error(op+" failed", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("%s failed", op))
}
