package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
)

type AlertHandler struct {
	audit  *services.AuditReader
	alerts *services.AlertEmitter
}

func NewAlertHandler(audit *services.AuditReader, alerts *services.AlertEmitter) *AlertHandler {
	return &AlertHandler{audit: audit, alerts: alerts}
}

func (h *AlertHandler) GetAlerts(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}

	status := models.AlertStatus(c.Query("status"))
	switch status {
	case "", models.AlertPending, models.AlertDelivered, models.AlertAbandoned:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, delivered or abandoned"})
		return
	}

	page := parsePage(c)
	alerts, total, err := h.audit.ListAlerts(c.Request.Context(), store.AlertFilter{
		Status: status,
		From:   from,
		To:     to,
		Page:   page,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, listResponse("alerts", alerts, total, page))
}

// MarkDelivered records an out-of-band delivery. Repeating it is harmless.
func (h *AlertHandler) MarkDelivered(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.alerts.MarkDelivered(c.Request.Context(), id); err != nil {
		respondError(c, err, "Alert not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert marked as delivered"})
}

func (h *AlertHandler) Dispatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.alerts.DispatchByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Alert not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *AlertHandler) Abandon(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.alerts.Abandon(c.Request.Context(), id); err != nil {
		respondError(c, err, "Alert not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert abandoned"})
}
