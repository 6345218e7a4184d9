package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

// DeviceHandler serves a student's own devices.
type DeviceHandler struct {
	store *store.Store
}

func NewDeviceHandler(st *store.Store) *DeviceHandler {
	return &DeviceHandler{store: st}
}

func (h *DeviceHandler) GetDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context(), middleware.CurrentIdentityID(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var input struct {
		RFIDTag    string `json:"rfid_tag" binding:"required"`
		DeviceName string `json:"device_name" binding:"required"`
		DeviceType string `json:"device_type"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if models.NormalizeTag(input.RFIDTag) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rfid_tag is required"})
		return
	}

	device := models.Device{
		IdentityID: middleware.CurrentIdentityID(c),
		RFIDTag:    input.RFIDTag,
		DeviceName: input.DeviceName,
		DeviceType: input.DeviceType,
	}

	if err := h.store.CreateDevice(c.Request.Context(), &device); err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"device": device})
}

func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.store.DeleteDevice(c.Request.Context(), id, middleware.CurrentIdentityID(c)); err != nil {
		respondError(c, err, "Device not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device deleted"})
}
