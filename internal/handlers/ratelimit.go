package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mossy-p/kvs-signaling/internal/metrics"
	"github.com/mossy-p/kvs-signaling/internal/middleware"
	"github.com/mossy-p/kvs-signaling/internal/models"
	"github.com/mossy-p/kvs-signaling/internal/ratelimit"
)

// RateLimit rejects callers that exceed the limiter's budget for route.
// Callers are keyed by authenticated user id, falling back to client IP.
// A nil limiter disables the check. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if userID := c.GetString(middleware.ContextUserID); userID != "" {
			key = "user:" + userID
		}

		decision, err := limiter.Allow(c.Request.Context(), route+":"+key)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Str("route", route).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		if !decision.Allowed {
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Too many requests",
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
