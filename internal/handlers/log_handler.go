package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
)

type LogHandler struct {
	audit        *services.AuditReader
	statsService *services.StatisticsService
}

func NewLogHandler(audit *services.AuditReader, stats *services.StatisticsService) *LogHandler {
	return &LogHandler{
		audit:        audit,
		statsService: stats,
	}
}

func (h *LogHandler) movementFilter(c *gin.Context) (store.MovementFilter, bool) {
	from, to, ok := parseRange(c)
	if !ok {
		return store.MovementFilter{}, false
	}

	status := models.MovementStatus(c.Query("status"))
	switch status {
	case "", models.MovementApproved, models.MovementDenied, models.MovementPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be approved, denied or pending"})
		return store.MovementFilter{}, false
	}

	return store.MovementFilter{
		Status:   status,
		GateName: c.Query("gate_name"),
		From:     from,
		To:       to,
		Page:     parsePage(c),
	}, true
}

// GetLogs lists movements for admins.
func (h *LogHandler) GetLogs(c *gin.Context) {
	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}

	movements, total, err := h.audit.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, listResponse("logs", movements, total, filter.Page))
}

// GetMyMovements lists the caller's own movements.
func (h *LogHandler) GetMyMovements(c *gin.Context) {
	filter, ok := h.movementFilter(c)
	if !ok {
		return
	}
	filter.IdentityID = middleware.CurrentIdentityID(c)

	movements, total, err := h.audit.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, listResponse("movements", movements, total, filter.Page))
}

func (h *LogHandler) GetFailedAttempts(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	page := parsePage(c)
	attempts, total, err := h.audit.ListFailedAttempts(c.Request.Context(), store.FailedAttemptFilter{
		Reason: models.FailureReason(c.Query("reason")),
		From:   from,
		To:     to,
		Page:   page,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, listResponse("failed_attempts", attempts, total, page))
}

// statsRange defaults to the last 30 days.
func statsRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, to, ok := parseRange(c)
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	end := time.Now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	return start, end, true
}

func (h *LogHandler) GetGateStats(c *gin.Context) {
	start, end, ok := statsRange(c)
	if !ok {
		return
	}

	stats, err := h.statsService.GateUsageStats(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"gates": stats})
}

func (h *LogHandler) GetMovementTimeSeries(c *gin.Context) {
	start, end, ok := statsRange(c)
	if !ok {
		return
	}

	interval := c.DefaultQuery("interval", "day")

	data, err := h.statsService.MovementTimeSeries(c.Request.Context(), c.Query("gate_name"), interval, start, end)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"interval": interval, "series": data})
}
