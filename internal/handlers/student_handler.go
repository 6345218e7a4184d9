package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
)

type StudentHandler struct {
	store *store.Store
	audit *services.AuditReader
}

func NewStudentHandler(st *store.Store, audit *services.AuditReader) *StudentHandler {
	return &StudentHandler{store: st, audit: audit}
}

func (h *StudentHandler) GetDashboard(c *gin.Context) {
	stats, err := h.audit.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StudentHandler) GetStudents(c *gin.Context) {
	page := parsePage(c)
	students, total, err := h.audit.ListStudents(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, listResponse("students", students, total, page))
}

func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.audit.StudentDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Student not found")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// UpdateStudent toggles whether the account may log in.
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
		return
	}

	student, err := h.store.SetIdentityActive(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		respondError(c, err, "Student not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

func (h *StudentHandler) GetProfile(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}

const minPasswordLength = 6

func (h *StudentHandler) ChangePassword(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var input struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password and new password are required"})
		return
	}
	if len(input.NewPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 6 characters"})
		return
	}

	if !identity.CheckPassword(input.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	hash, err := models.HashPassword(input.NewPassword)
	if err != nil {
		log.Printf("hash password for identity %d: %v", identity.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}
	if err := h.store.UpdatePasswordHash(c.Request.Context(), identity.ID, hash); err != nil {
		respondError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
