package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/kvs-signaling/internal/middleware"
	"github.com/mossy-p/kvs-signaling/internal/models"
)

// SessionAssembler builds viewer sessions. Implemented by *kvs.Assembler.
type SessionAssembler interface {
	Assemble(ctx context.Context, userID, channel string) (*models.SessionConfiguration, error)
	RefreshIceServers(ctx context.Context, channel string) ([]models.IceServer, error)
}

// URLSigner presigns caller-supplied URLs. Implemented by *kvs.URLSigner.
type URLSigner interface {
	SignURL(ctx context.Context, endpoint string, params map[string]string) (string, error)
}

// Initialize handles POST /api/kvs/initialize
func Initialize(sessions SessionAssembler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.InitializeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}

		userID := strings.TrimSpace(req.UserID)
		if tokenUser := c.GetString(middleware.ContextUserID); tokenUser != "" {
			if userID != "" && userID != tokenUser {
				c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error: "userId does not match token",
				})
				return
			}
			userID = tokenUser
		}
		if userID == "" {
			badRequest(c, "userId is required", nil)
			return
		}

		cfg, err := sessions.Assemble(c.Request.Context(), userID, req.ChannelName)
		if err != nil {
			respondError(c, "Failed to initialize KVS connection", err)
			return
		}

		c.JSON(http.StatusOK, models.NewInitializeResponse(*cfg))
	}
}

// SignURL handles POST /api/kvs/sign-url
func SignURL(signer URLSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
		if strings.TrimSpace(req.Endpoint) == "" {
			badRequest(c, "endpoint is required", nil)
			return
		}

		signed, err := signer.SignURL(c.Request.Context(), req.Endpoint, req.QueryParams)
		if err != nil {
			respondError(c, "Failed to sign URL", err)
			return
		}

		c.JSON(http.StatusOK, models.SignURLResponse{SignedURL: signed})
	}
}

// IceServers handles POST /api/kvs/ice-servers
func IceServers(sessions SessionAssembler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.IceServersRequest
		// An empty body selects the configured channel.
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				badRequest(c, "Invalid request body", err)
				return
			}
		}

		servers, err := sessions.RefreshIceServers(c.Request.Context(), req.ChannelName)
		if err != nil {
			respondError(c, "Failed to refresh ICE servers", err)
			return
		}

		c.JSON(http.StatusOK, models.IceServersResponse{IceServers: servers})
	}
}
