package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/handler"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Control *handler.ControlHandler
	Monitor *handler.MonitorHandler
	Sweep   *handler.SweepHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Internal-Key"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session starts (30 requests per minute per IP).
	// Heartbeats stay unlimited: a classroom behind one NAT would trip
	// any sane per-IP budget within seconds.
	startLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Session Group (Public, token-in-body) ──────────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	{
		sessionAPI.POST("/start", startLimiter.Middleware(), handlers.Session.StartSession)
		sessionAPI.POST("/heartbeat", handlers.Session.Heartbeat)
		sessionAPI.POST("/end", handlers.Session.EndSession)
		sessionAPI.POST("/violation", handlers.Session.ReportViolation)
	}

	// ─── 3. WebSocket Group (session token in query) ───────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/stream", handlers.WS.SessionWebSocketStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.GET("/quizzes/:quiz_id/monitor", handlers.Monitor.GetSnapshot)
		teacherAPI.GET("/quizzes/:quiz_id/monitor/stream", handlers.Monitor.MonitorQuizSSE)
		teacherAPI.GET("/quizzes/:quiz_id/sessions/:session_id/violations", handlers.Monitor.GetViolations)
		teacherAPI.POST("/quizzes/:quiz_id/control", handlers.Control.ApplyControl)
	}

	// ─── 5. Internal Group (shared key) ────────────────────────────────
	internalAPI := router.Group("/api/v1/internal")
	{
		internalAPI.POST("/sweep", handlers.Sweep.RunSweep)
	}

	return router
}
