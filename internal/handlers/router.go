package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/kvs-signaling/config"
	"github.com/mossy-p/kvs-signaling/internal/middleware"
	"github.com/mossy-p/kvs-signaling/internal/models"
	"github.com/mossy-p/kvs-signaling/internal/ratelimit"
)

// Dependencies are the services the HTTP layer calls into.
type Dependencies struct {
	Sessions SessionAssembler
	Signer   URLSigner
	Limiter  ratelimit.Limiter // nil disables rate limiting
}

// SetupRouter builds the gin engine serving the broker API.
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// ClientIP keys anonymous rate limits, so forwarded headers are honored
	// only from configured proxies.
	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := r.SetTrustedProxies(proxies); err != nil {
		log.Error().Err(err).Msg("Invalid trusted proxies, ignoring forwarded headers")
		_ = r.SetTrustedProxies(nil)
	}

	// Global middleware runs for unmatched routes too, so preflights are answered
	// before routing rejects the OPTIONS method.
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger())
	r.Use(OriginFilter(cfg.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
	})

	health := Health(cfg)
	r.GET("/health", health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/health", health)

	kvsAPI := api.Group("/kvs")
	kvsAPI.Use(Timeout(cfg.RequestTimeout))
	if cfg.JWTSecret != "" {
		kvsAPI.Use(middleware.JWTAuth(cfg.JWTSecret))
	}
	{
		kvsAPI.POST("/initialize", RateLimit(deps.Limiter, "initialize"), Initialize(deps.Sessions))
		kvsAPI.POST("/sign-url", RateLimit(deps.Limiter, "sign-url"), SignURL(deps.Signer))
		kvsAPI.POST("/ice-servers", RateLimit(deps.Limiter, "ice-servers"), IceServers(deps.Sessions))
	}

	return r
}
