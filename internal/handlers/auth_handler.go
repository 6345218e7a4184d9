package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samrato/QMMMUST/internal/guard"
	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/store"
)

type AuthHandler struct {
	store          *store.Store
	authMiddleware *middleware.AuthMiddleware
	limiter        guard.Limiter
}

func NewAuthHandler(st *store.Store, auth *middleware.AuthMiddleware, limiter guard.Limiter) *AuthHandler {
	if limiter == nil {
		limiter = guard.NewInMemory(10, 10*time.Minute)
	}
	return &AuthHandler{
		store:          st,
		authMiddleware: auth,
		limiter:        limiter,
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		RegistrationNumber string `json:"registrationNumber" binding:"required"`
		Password           string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Registration number and password are required"})
		return
	}
	login := strings.TrimSpace(input.RegistrationNumber)

	ctx := c.Request.Context()
	if d := h.limiter.Allow(ctx, "login:"+c.ClientIP()); !d.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, try again later"})
		return
	}

	identity, err := h.store.FindIdentityByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, err, "Invalid credentials")
		return
	}

	if !identity.CheckPassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !identity.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is inactive"})
		return
	}

	token, expiresAt, err := h.authMiddleware.GenerateToken(identity)
	if err != nil {
		respondError(c, err, "")
		return
	}

	if err := h.store.TouchLastLogin(ctx, identity.ID, time.Now()); err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"role":       identity.Role,
		"user": gin.H{
			"id":                 identity.ID,
			"name":               identity.Name,
			"email":              identity.Email,
			"registrationNumber": identity.RegistrationNumber,
		},
	})
}

// Register lets an admin create student or admin accounts.
func (h *AuthHandler) Register(c *gin.Context) {
	var input struct {
		RegistrationNumber string `json:"registration_number" binding:"required"`
		Name               string `json:"name" binding:"required"`
		Email              string `json:"email" binding:"required,email"`
		Password           string `json:"password" binding:"required"`
		Role               string `json:"role"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.RoleStudent
	if input.Role != "" {
		parsed, err := models.ParseRole(input.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role = parsed
	}

	identity := models.Identity{
		RegistrationNumber: strings.TrimSpace(input.RegistrationNumber),
		Name:               input.Name,
		Email:              strings.ToLower(strings.TrimSpace(input.Email)),
		Role:               role,
		PasswordHash:       input.Password,
		Active:             true,
	}

	if err := h.store.CreateIdentity(c.Request.Context(), &identity); err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": identity})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity})
}
