package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mossy-p/kvs-signaling/internal/kvs"
	"github.com/mossy-p/kvs-signaling/internal/models"
)

// StatusFor maps a broker error to the HTTP status returned to clients.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, kvs.ErrInvalidInput), errors.Is(err, kvs.ErrInvalidEndpoint):
		return http.StatusBadRequest
	case errors.Is(err, kvs.ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, kvs.ErrIncompleteEndpoints), errors.Is(err, kvs.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	status := StatusFor(err)
	logger := zerolog.Ctx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg(message)
	} else {
		logger.Warn().Err(err).Int("status", status).Msg(message)
	}

	c.JSON(status, models.ErrorResponse{
		Error:   message,
		Details: err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	resp := models.ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
