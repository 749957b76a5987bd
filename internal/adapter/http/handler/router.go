package handler

import (
	"time"

	"paynow-terminal-gateway/internal/adapter/http/middleware"
	"paynow-terminal-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Dispatcher        ports.Dispatcher
	IntentStore       ports.IntentStore
	TerminalRepo      ports.TerminalRepository
	TokenSvc          ports.TokenService
	DeviceKeySvc      ports.DeviceKeyService
	OperatorAccessKey string
	HeartbeatInterval time.Duration
	HealthCheckers    []ports.HealthChecker
	Logger            zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.TokenSvc, deps.OperatorAccessKey)
	v1.POST("/auth/token", authHandler.Token)

	// --- JWT-authenticated routes (POS operator API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	intentHandler := NewIntentHandler(deps.Dispatcher, deps.IntentStore)

	terminals := v1.Group("/terminals", jwtAuth)
	{
		terminals.POST("/:id/intents", intentHandler.Create)
	}
	intents := v1.Group("/intents", jwtAuth)
	{
		intents.GET("/:id", intentHandler.Get)
		intents.POST("/:id/resolve", intentHandler.Resolve)
	}

	// --- Device-key-authenticated routes (terminal displays) ---
	deviceAuth := middleware.DeviceKeyAuth(deps.TerminalRepo, deps.DeviceKeySvc, deps.Logger)
	displayHandler := NewDisplayHandler(deps.Dispatcher, deps.HeartbeatInterval, deps.Logger)
	v1.GET("/terminals/:id/events", deviceAuth, displayHandler.Stream)

	return r
}
