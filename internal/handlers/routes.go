package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/ptt-signaling/config"
)

// NewRouter wires the HTTP surface of the relay.
func NewRouter(cfg *config.Config, relay *Relay) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", relay.Status)
	}

	// WebSocket signaling endpoint
	router.GET("/ws", relay.HandleSignaling)
	router.GET("/socket", relay.HandleSignaling)

	return router
}
