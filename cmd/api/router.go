package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobtrack-backend/internal/auth/delivery"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			if sqlDB, err := h.app.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		protected := api.Group("")
		protected.Use(delivery.AuthMiddleware(h.app.Auth))
		{
			h.accountHandler.Register(protected)
			h.trackerHandler.Register(protected)
			h.ingestHandler.Register(protected)
			h.settingsHandler.Register(protected)
		}
	}
}
