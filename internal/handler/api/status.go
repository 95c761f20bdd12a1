package api

import (
	"context"
	"strconv"
	"time"

	"TradePull/internal/domain/models"
	domrepo "TradePull/internal/domain/repository"
	"TradePull/internal/usecase"
	xhttp "TradePull/pkg/http"
	xlogger "TradePull/pkg/logger"
	"TradePull/pkg/util"

	"github.com/labstack/echo/v4"
)

// OpsHandler exposes the operational query surface: health, the status
// board, buffered candles, ledger history, recent errors, and on-demand
// backfill.
type OpsHandler struct {
	logger    *xlogger.Logger
	collector *xlogger.Collector
	store     domrepo.CandleStore
	status    domrepo.StatusBoard
	ledger    domrepo.Ledger
	backfill  *usecase.Backfiller
	ingestor  *usecase.StreamIngestor
}

// NewOpsHandler creates the operational API handler.
func NewOpsHandler(
	logger *xlogger.Logger,
	collector *xlogger.Collector,
	store domrepo.CandleStore,
	status domrepo.StatusBoard,
	ledger domrepo.Ledger,
	backfill *usecase.Backfiller,
	ingestor *usecase.StreamIngestor,
) *OpsHandler {
	return &OpsHandler{
		logger:    logger,
		collector: collector,
		store:     store,
		status:    status,
		ledger:    ledger,
		backfill:  backfill,
		ingestor:  ingestor,
	}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	g.GET("/status", h.Status)
	g.GET("/candles", h.Candles)
	g.GET("/ledger", h.Ledger)
	g.GET("/errors", h.Errors)
	g.POST("/backfill", h.Backfill)
}

func (h *OpsHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("candle store unreachable").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":    "ok",
		"streaming": h.ingestor.IsConnected(),
	})
}

func (h *OpsHandler) Status(c echo.Context) error {
	snapshot, err := h.status.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("status snapshot failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	// the board stores the last candle open as raw milliseconds; surface
	// a readable timestamp next to it
	if raw, ok := snapshot[models.StatusFieldLastCandleAt]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			snapshot["last_candle_time"] = util.MillisToTime(ms).Format(time.RFC3339)
		}
	}
	return xhttp.SuccessResponse(c, snapshot)
}

func (h *OpsHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := models.SeriesKey{Symbol: req.Symbol, Interval: req.Interval}
	candles, err := h.store.Read(c.Request().Context(), key, req.Count)
	if err != nil {
		h.logger.Error("candle read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	total, err := h.store.Count(c.Request().Context(), key)
	if err != nil {
		total = int64(len(candles))
	}
	return xhttp.ListResponse(c, candles, total)
}

func (h *OpsHandler) Ledger(c echo.Context) error {
	req := &models.LedgerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries, err := h.ledger.Query(c.Request().Context(), req.UserID, req.Limit)
	if err != nil {
		h.logger.Error("ledger query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, entries, int64(len(entries)))
}

func (h *OpsHandler) Errors(c echo.Context) error {
	if h.collector == nil {
		return xhttp.SuccessResponse(c, nil)
	}
	return xhttp.SuccessResponse(c, h.collector.Recent())
}

func (h *OpsHandler) Backfill(c echo.Context) error {
	req := &models.BackfillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := models.SeriesKey{Symbol: req.Symbol, Interval: req.Interval}
	n, err := h.backfill.Run(c.Request().Context(), key, req.Depth)
	if err != nil {
		h.logger.Error("backfill failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"filled": n})
}
