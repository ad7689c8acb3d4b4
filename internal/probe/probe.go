// Package probe checks that a presigned signaling URL is accepted by opening
// the WebSocket handshake and closing it straight away.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
)

// Result describes a completed handshake.
type Result struct {
	Endpoint string // signed URL without its query
	Status   int
	Latency  time.Duration
}

// Prober dials signed URLs.
type Prober struct {
	Dialer *websocket.Dialer
}

func New() *Prober {
	return &Prober{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Probe opens the WebSocket at signedURL and closes it with a normal closure.
// A rejected handshake returns an error carrying the HTTP status.
func (p *Prober) Probe(ctx context.Context, signedURL string) (*Result, error) {
	u, err := url.Parse(signedURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid signed url: %q", redact(signedURL))
	}
	if u.Scheme != "wss" && u.Scheme != "ws" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	logger := zerolog.Ctx(ctx).With().Str("endpoint", redact(signedURL)).Logger()

	start := time.Now()
	conn, resp, err := p.Dialer.DialContext(ctx, signedURL, nil)
	if err != nil {
		if resp != nil {
			logger.Warn().Int("status", resp.StatusCode).Msg("Handshake rejected")
			return nil, fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	result := &Result{
		Endpoint: redact(signedURL),
		Status:   resp.StatusCode,
		Latency:  time.Since(start),
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logger.Debug().Err(err).Msg("Failed to send close frame")
	}

	logger.Info().Int("status", result.Status).Dur("latency", result.Latency).Msg("Handshake accepted")
	return result, nil
}

// redact drops the query so signatures and credentials stay out of logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
