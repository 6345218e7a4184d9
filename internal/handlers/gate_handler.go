package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/services"
)

type GateHandler struct {
	verifier *services.ScanVerifier
}

func NewGateHandler(verifier *services.ScanVerifier) *GateHandler {
	return &GateHandler{verifier: verifier}
}

// Scan answers the gate hardware. Approvals and denials are both 200; only the body differs.
func (h *GateHandler) Scan(c *gin.Context) {
	var input struct {
		RFIDTag       string `json:"rfid_tag"`
		PIN           string `json:"pin"`
		GateName      string `json:"gate_name"`
		GateDirection string `json:"gate_direction"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed scan request"})
		return
	}

	res, err := h.verifier.VerifyScan(c.Request.Context(), services.ScanRequest{
		RFIDTag:   input.RFIDTag,
		PIN:       input.PIN,
		GateName:  input.GateName,
		Direction: models.Direction(input.GateDirection),
		SourceIP:  c.ClientIP(),
	})
	if err != nil {
		respondError(c, err, "")
		return
	}

	if !res.Approved() {
		c.JSON(http.StatusOK, gin.H{
			"status":  res.Decision,
			"message": res.Message,
		})
		return
	}

	body := gin.H{
		"status":            res.Decision,
		"message":           res.Message,
		"notification_sent": res.NotificationSent,
	}
	if res.Identity != nil {
		body["student"] = gin.H{
			"name":  res.Identity.Name,
			"email": res.Identity.Email,
		}
	}
	c.JSON(http.StatusOK, body)
}
