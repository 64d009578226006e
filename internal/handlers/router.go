package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/call-signaling/internal/middleware"
	"github.com/mossy-p/call-signaling/internal/models"
)

// SignalingHub is everything the HTTP surface needs from the core
type SignalingHub interface {
	Hub
	Counters() models.Counters
}

type RouterOptions struct {
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	RequireAuth    bool
	Started        time.Time
	WS             WSOptions
}

// SetupRouter builds the gin engine with every route the server serves
func SetupRouter(hub SignalingHub, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(opts.AllowedOrigins))

	router.GET("/health", Health(hub, opts.Environment))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/auth/login", Login(opts.JWTSecret))
		apiGroup.GET("/status", Status(opts.Environment, opts.Started))
		apiGroup.GET("/webrtc/status", SignalingStatus(hub))
		apiGroup.GET("/browser/compatibility", BrowserCompatibility)
	}

	signal := []gin.HandlerFunc{HandleSignaling(hub, opts.WS)}
	if opts.RequireAuth {
		signal = append([]gin.HandlerFunc{middleware.JWTAuth(opts.JWTSecret)}, signal...)
	}
	router.GET("/ws/signal", signal...)

	return router
}
