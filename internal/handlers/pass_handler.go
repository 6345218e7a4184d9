package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/services"
)

type PassHandler struct {
	issuer *services.PassIssuer
}

func NewPassHandler(issuer *services.PassIssuer) *PassHandler {
	return &PassHandler{issuer: issuer}
}

// GeneratePass issues a pass for one of the caller's devices. The PIN is returned once.
func (h *PassHandler) GeneratePass(c *gin.Context) {
	var input struct {
		DeviceID uint `json:"device_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}

	issued, err := h.issuer.IssuePass(c.Request.Context(), middleware.CurrentIdentityID(c), input.DeviceID)
	if err != nil {
		respondError(c, err, "Device not found")
		return
	}

	pass := issued.Pass
	c.JSON(http.StatusCreated, gin.H{
		"gate_pass": gin.H{
			"id":         pass.ID,
			"reference":  pass.Reference,
			"qr_code":    pass.QRCode,
			"qr_payload": pass.QRPayload,
			"pin":        pass.PIN,
			"expires_at": pass.ExpiresAt,
			"created_at": pass.CreatedAt,
		},
		"email_sent": issued.EmailSent,
	})
}
