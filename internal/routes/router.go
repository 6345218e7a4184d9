package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samrato/QMMMUST/internal/config"
	"github.com/samrato/QMMMUST/internal/guard"
	"github.com/samrato/QMMMUST/internal/handlers"
	"github.com/samrato/QMMMUST/internal/middleware"
	"github.com/samrato/QMMMUST/internal/models"
	"github.com/samrato/QMMMUST/internal/services"
	"github.com/samrato/QMMMUST/internal/store"
	"github.com/samrato/QMMMUST/internal/websocket"
)

// Dependencies are the wired components the router exposes.
type Dependencies struct {
	Store    *store.Store
	Auth     *middleware.AuthMiddleware
	Issuer   *services.PassIssuer
	Verifier *services.ScanVerifier
	Alerts   *services.AlertEmitter
	Audit    *services.AuditReader
	Stats    *services.StatisticsService

	LoginLimiter guard.Limiter
	Hub          *websocket.Hub
	Gatherer     prometheus.Gatherer
}

func SetupRouter(config *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	authHandler := handlers.NewAuthHandler(deps.Store, deps.Auth, deps.LoginLimiter)
	deviceHandler := handlers.NewDeviceHandler(deps.Store)
	passHandler := handlers.NewPassHandler(deps.Issuer)
	gateHandler := handlers.NewGateHandler(deps.Verifier)
	alertHandler := handlers.NewAlertHandler(deps.Audit, deps.Alerts)
	logHandler := handlers.NewLogHandler(deps.Audit, deps.Stats)
	studentHandler := handlers.NewStudentHandler(deps.Store, deps.Audit)

	authMiddleware := deps.Auth
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(config.APIKeyRequired, config.APIKeys)

	router.GET("/healthz", func(c *gin.Context) {
		if err := deps.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if config.EnableWebsocket && deps.Hub != nil {
		wsHandler := websocket.NewWebSocketHandler(deps.Hub, authMiddleware)
		router.GET("/ws", wsHandler.HandleWebSocket)
	}

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authMiddleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin), authHandler.Register)
		auth.GET("/me", authMiddleware.AuthRequired(), authHandler.GetMe)
	}

	gate := router.Group("/api/gate")
	gate.Use(apiKeyMiddleware.APIKeyRequired())
	{
		gate.POST("/scan", gateHandler.Scan)
	}

	student := router.Group("/api/student")
	student.Use(authMiddleware.AuthRequired())
	{
		student.GET("/profile", studentHandler.GetProfile)
		student.POST("/change-password", studentHandler.ChangePassword)
		student.GET("/devices", deviceHandler.GetDevices)
		student.POST("/devices", deviceHandler.CreateDevice)
		student.DELETE("/devices/:id", deviceHandler.DeleteDevice)
		student.POST("/generate-pass", passHandler.GeneratePass)
		student.GET("/movements", logHandler.GetMyMovements)
	}

	admin := router.Group("/api/admin")
	admin.Use(authMiddleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/dashboard", studentHandler.GetDashboard)

		admin.GET("/students", studentHandler.GetStudents)
		admin.GET("/students/:id", studentHandler.GetStudent)
		admin.PUT("/students/:id", studentHandler.UpdateStudent)

		admin.GET("/logs", logHandler.GetLogs)
		admin.GET("/failed-attempts", logHandler.GetFailedAttempts)

		admin.GET("/alerts", alertHandler.GetAlerts)
		admin.POST("/alerts/:id/delivered", alertHandler.MarkDelivered)
		admin.POST("/alerts/:id/dispatch", alertHandler.Dispatch)
		admin.POST("/alerts/:id/abandon", alertHandler.Abandon)

		admin.GET("/stats/gates", logHandler.GetGateStats)
		admin.GET("/stats/time-series", logHandler.GetMovementTimeSeries)
	}

	return router
}
