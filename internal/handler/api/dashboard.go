package api

import (
	"errors"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	"StockPulse/internal/service/ratelimit"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardHandler exposes the session, history, and one-shot predict
// endpoints consumed by the chart frontend.
type DashboardHandler struct {
	logger     *xlogger.Logger
	session    *usecase.InstrumentSession
	history    drepo.HistoryProvider
	directory  drepo.InstrumentDirectory
	providers  map[models.ModelID]domsvc.ForecastProvider
	limiter    *ratelimit.Limiter
	predictRPS float64
}

// NewDashboardHandler wires the handler.
func NewDashboardHandler(
	logger *xlogger.Logger,
	session *usecase.InstrumentSession,
	history drepo.HistoryProvider,
	dir drepo.InstrumentDirectory,
	providers []domsvc.ForecastProvider,
	predictRPS float64,
) *DashboardHandler {
	byModel := make(map[models.ModelID]domsvc.ForecastProvider, len(providers))
	for _, p := range providers {
		byModel[p.ModelID()] = p
	}
	if predictRPS <= 0 {
		predictRPS = 1
	}
	return &DashboardHandler{
		logger:     logger,
		session:    session,
		history:    history,
		directory:  dir,
		providers:  byModel,
		limiter:    ratelimit.New(),
		predictRPS: predictRPS,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/available-stocks", h.AvailableStocks)
	g.POST("/session/select", h.Select)
	g.GET("/session/view", h.View)
	g.GET("/session/status", h.Status)
	g.GET("/stock/history", h.History)
	g.POST("/predict", h.Predict)
	e.GET("/healthz", h.Health)
}

// AvailableStocks lists the selectable universe.
func (h *DashboardHandler) AvailableStocks(c echo.Context) error {
	list, err := h.directory.ListAvailable(c.Request().Context())
	if err != nil {
		h.logger.Error("directory error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, list)
}

// Select switches the session to a new instrument.
func (h *DashboardHandler) Select(c echo.Context) error {
	req := &models.SelectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)

	if err := h.session.Select(c.Request().Context(), symbol); err != nil {
		if errors.Is(err, usecase.ErrUnknownSymbol) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("symbol %s not available", symbol).WithError(err))
		}
		h.logger.Error("select error", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	snap, err := h.session.Snapshot(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// View returns the assembled timeline for the active instrument.
func (h *DashboardHandler) View(c echo.Context) error {
	req := &models.ViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var model models.ModelID
	if req.Model != "" {
		m, err := models.ParseModelID(req.Model)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		model = m
	}

	tl, status, detail, err := h.session.View(c.Request().Context(), models.ParseLookback(req.Lookback), model)
	if err != nil {
		h.logger.Error("view error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":       status,
		"error_detail": detail,
		"timeline":     tl,
	})
}

// Status returns the session snapshot.
func (h *DashboardHandler) Status(c echo.Context) error {
	snap, err := h.session.Snapshot(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// History serves the raw columnar series for any symbol, bypassing the
// session. Cached reads make this cheap for chart reloads.
func (h *DashboardHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)

	series, err := h.history.GetHistory(c.Request().Context(), symbol, req.Period, req.Interval)
	if err != nil {
		h.logger.Error("history error", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no history for %s", symbol).WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, models.NewHistoryResponse(symbol, series))
}

// Predict runs a single model on demand, outside the session fan-out.
func (h *DashboardHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := util.NormalizeSymbol(req.Symbol)

	if !h.limiter.Allow("predict:"+symbol, h.predictRPS, h.predictRPS) {
		return xhttp.TooManyRequestsResponse(c, "prediction rate limit exceeded")
	}

	model, err := models.ParseModelID(req.Model)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	provider, ok := h.providers[model]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("model %s not configured", model))
	}

	fs, err := provider.Predict(c.Request().Context(), symbol, req.Days)
	if err != nil {
		h.logger.Error("predict error",
			xlogger.String("symbol", symbol),
			xlogger.String("model", string(model)),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("prediction service unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, models.NewForecastResponse(symbol, fs))
}

// Health reports feed connectivity.
func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"feed_connected": h.session.Connected(),
	})
}
