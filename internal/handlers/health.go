package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/kvs-signaling/config"
	"github.com/mossy-p/kvs-signaling/internal/models"
)

// Health reports liveness and which settings are present. Values are never echoed.
func Health(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Environment: models.HealthEnvironment{
				HasAWSCredentials: cfg.HasCredentials(),
				Region:            cfg.AWS.Region,
				ChannelConfigured: cfg.ChannelConfigured(),
			},
		})
	}
}
