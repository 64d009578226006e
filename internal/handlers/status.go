package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/call-signaling/internal/compat"
	"github.com/mossy-p/call-signaling/internal/models"
)

const (
	serverName = "call-signaling"
	Version    = "1.0.0"
)

// CounterSource exposes the live core counters
type CounterSource interface {
	Counters() models.Counters
}

// Health reports liveness plus the core counters
func Health(src CounterSource, environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := src.Counters()
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:         "ok",
			Environment:    environment,
			ActiveUsers:    n.RegisteredConnections,
			ActiveCalls:    n.ActiveCalls,
			BufferedOffers: n.BufferedOffers,
			Timestamp:      time.Now().UTC(),
		})
	}
}

// Status describes the running server
func Status(environment string, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ServerStatus{
			Server:      serverName,
			Version:     Version,
			Status:      "running",
			Environment: environment,
			Uptime:      time.Since(started).Seconds(),
			Timestamp:   time.Now().UTC(),
		})
	}
}

func SignalingStatus(src CounterSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.SignalingStatus{
			Server:   serverName,
			Counters: src.Counters(),
		})
	}
}

// BrowserCompatibility classifies the caller's User-Agent, or the ua query
// parameter when given.
func BrowserCompatibility(c *gin.Context) {
	ua := c.Query("ua")
	if ua == "" {
		ua = c.Request.UserAgent()
	}
	c.JSON(http.StatusOK, compat.Detect(ua))
}
