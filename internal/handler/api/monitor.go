package api

import (
	"time"

	"TapeWatch/internal/domain/models"
	domrepo "TapeWatch/internal/domain/repository"
	"TapeWatch/internal/service/snapshot"
	"TapeWatch/internal/usecase"
	xhttp "TapeWatch/pkg/http"
	xlogger "TapeWatch/pkg/logger"
	"TapeWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// MonitorHandler exposes the monitoring session over HTTP.
type MonitorHandler struct {
	logger  *xlogger.Logger
	agg     *usecase.AlertAggregator
	monitor *usecase.Monitor
	hub     *snapshot.Hub
	events  *usecase.EventRing
	archive domrepo.AlertArchive
}

func NewMonitorHandler(
	logger *xlogger.Logger,
	agg *usecase.AlertAggregator,
	monitor *usecase.Monitor,
	hub *snapshot.Hub,
	events *usecase.EventRing,
	archive domrepo.AlertArchive,
) *MonitorHandler {
	return &MonitorHandler{
		logger:  logger,
		agg:     agg,
		monitor: monitor,
		hub:     hub,
		events:  events,
		archive: archive,
	}
}

func (h *MonitorHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/records", h.Records)
	g.GET("/records/top", h.TopRecords)
	g.GET("/snapshot/:code", h.Snapshot)
	g.GET("/events", h.Events)
	g.GET("/history", h.History)
	g.POST("/reset", h.Reset)
	g.POST("/reprime", h.RePrime)
}

// Records returns aggregated alert records, most recently updated first.
func (h *MonitorHandler) Records(c echo.Context) error {
	req := &models.RecordsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	dir := models.DirectionNeutral // "all"
	if req.Direction != "all" {
		dir = models.ParseDirection(req.Direction)
	}
	recs := h.agg.Records(dir)
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

// TopRecords returns the busiest securities for one direction.
func (h *MonitorHandler) TopRecords(c echo.Context) error {
	req := &models.TopRecordsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	recs := h.agg.TopN(models.ParseDirection(req.Direction), req.N)
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

type snapshotResponse struct {
	Version  uint64           `json:"version"`
	Changed  bool             `json:"changed"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
}

// Snapshot checks out the latest print snapshot for one security. Clients
// pass the version they last saw; an unchanged snapshot returns no body.
func (h *MonitorHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	code := c.Param("code")
	if code == "" {
		return xhttp.BadRequestResponse(c, "code required")
	}
	if _, ok := h.hub.Lookup(code); !ok {
		return xhttp.NotFoundResponse(c, "unknown security")
	}
	version, snap, changed := h.hub.Checkout(code, req.Version)
	return xhttp.SuccessResponse(c, &snapshotResponse{
		Version:  version,
		Changed:  changed,
		Snapshot: snap,
	})
}

// Events returns the most recent monitor events, newest first.
func (h *MonitorHandler) Events(c echo.Context) error {
	req := &models.EventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	evs := h.events.Recent(req.Limit)
	return xhttp.ListResponse(c, evs, int64(len(evs)))
}

// History queries the alert archive for one security.
func (h *MonitorHandler) History(c echo.Context) error {
	if h.archive == nil {
		return xhttp.NotFoundResponse(c, "alert archive disabled")
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := historyWindow(req.From, req.To)
	alerts, err := h.archive.Query(c.Request().Context(), req.Code, from, to, req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

// Reset clears aggregated records, detector carry-over and recent events.
func (h *MonitorHandler) Reset(c echo.Context) error {
	h.agg.Reset()
	h.events.Clear()
	h.logger.Info("session records cleared")
	return xhttp.NoContentResponse(c)
}

// RePrime reloads security profiles and rebuilds the monitored set.
func (h *MonitorHandler) RePrime(c echo.Context) error {
	if err := h.monitor.RePrime(c.Request().Context()); err != nil {
		h.logger.Error("reprime error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"securities": h.monitor.SessionCount()})
}

// historyWindow defaults to the last 24 hours when bounds are absent or
// unparseable.
func historyWindow(from, to string) (time.Time, time.Time) {
	now := time.Now()
	f := util.ParseTimeDefault(from, now.Add(-24*time.Hour))
	t := util.ParseTimeDefault(to, now)
	return f, t
}
