package kvs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mossy-p/kvs-signaling/internal/metrics"
	"github.com/mossy-p/kvs-signaling/internal/models"
	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

const (
	clientIDPrefix = "VIEWER-"

	// Query parameters the signaling service expects on the WSS endpoint.
	ParamChannelARN = "X-Amz-ChannelARN"
	ParamClientID   = "X-Amz-ClientId"

	opAssemble = "assemble"
	opRefresh  = "refresh_ice_servers"
	opSign     = "sign"
)

// Assembler composes resolution, relay listing and signing into a
// viewer session. It holds no per-request state.
type Assembler struct {
	Resolver    *Resolver
	Relays      *RelayLister
	Signer      *sigv4.Signer
	Credentials CredentialSource
	Region      string

	// DefaultChannel is used when a request names no channel.
	DefaultChannel string
	// TimestampClientID appends -<unix millis> to client ids.
	TimestampClientID bool
	Now               func() time.Time
}

// Assemble builds a SessionConfiguration for userID. Any failure is wrapped
// in ErrInitializationFailed with its cause kept; nothing partial is returned.
func (a *Assembler) Assemble(ctx context.Context, userID, channel string) (*models.SessionConfiguration, error) {
	cfg, err := a.assemble(ctx, userID, channel)
	metrics.ObserveSession(err)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to initialize viewer session")
		return nil, newError(ErrInitializationFailed, opAssemble, err)
	}
	return cfg, nil
}

func (a *Assembler) assemble(ctx context.Context, userID, channel string) (*models.SessionConfiguration, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, newError(ErrInvalidInput, opAssemble, errors.New("userId is required"))
	}
	target, err := a.channelFor(channel)
	if err != nil {
		return nil, err
	}

	resolved, err := a.Resolver.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	iceServers, err := a.Relays.List(ctx, resolved.ARN, resolved.Endpoints.HTTPS)
	if err != nil {
		return nil, err
	}

	clientID := a.clientID(userID)
	signed, err := a.sign(ctx, resolved.Endpoints.WSS, map[string]string{
		ParamChannelARN: resolved.ARN,
		ParamClientID:   clientID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("channel_arn", resolved.ARN).
		Str("client_id", clientID).
		Int("ice_servers", len(iceServers)).
		Str("endpoint", Truncate(signed, 100)).
		Msg("Viewer session initialized")

	return &models.SessionConfiguration{
		ChannelEndpoint: signed,
		ChannelARN:      resolved.ARN,
		ClientID:        clientID,
		IceServers:      iceServers,
		Region:          a.Region,
		HTTPSEndpoint:   resolved.Endpoints.HTTPS,
	}, nil
}

// RefreshIceServers re-resolves the channel and returns a fresh relay list,
// for viewers whose TURN credentials have expired.
func (a *Assembler) RefreshIceServers(ctx context.Context, channel string) ([]models.IceServer, error) {
	target, err := a.channelFor(channel)
	if err != nil {
		return nil, err
	}
	resolved, err := a.Resolver.Resolve(ctx, target)
	if err != nil {
		return nil, newError(ErrInitializationFailed, opRefresh, err)
	}
	servers, err := a.Relays.List(ctx, resolved.ARN, resolved.Endpoints.HTTPS)
	if err != nil {
		return nil, newError(ErrInitializationFailed, opRefresh, err)
	}
	return servers, nil
}

func (a *Assembler) channelFor(channel string) (string, error) {
	if c := strings.TrimSpace(channel); c != "" {
		return c, nil
	}
	if a.DefaultChannel != "" {
		return a.DefaultChannel, nil
	}
	return "", newError(ErrInvalidInput, opAssemble, errors.New("channelName is required either in request body or configuration"))
}

func (a *Assembler) clientID(userID string) string {
	id := clientIDPrefix + userID
	if a.TimestampClientID {
		now := a.Now
		if now == nil {
			now = time.Now
		}
		id += "-" + strconv.FormatInt(now().UnixMilli(), 10)
	}
	return id
}

func (a *Assembler) sign(ctx context.Context, endpoint string, query map[string]string) (string, error) {
	return signWith(ctx, a.Signer, a.Credentials, endpoint, query)
}

func signWith(ctx context.Context, signer *sigv4.Signer, src CredentialSource, endpoint string, query map[string]string) (string, error) {
	creds, err := src.Credentials(ctx)
	if err != nil {
		metrics.ObserveSignature(err)
		return "", newError(ErrMissingCredentials, opSign, err)
	}
	signed, err := signer.PresignURL(endpoint, query, creds)
	metrics.ObserveSignature(err)
	if err != nil {
		kind := ErrInvalidEndpoint
		if errors.Is(err, ErrMissingCredentials) {
			kind = ErrMissingCredentials
		}
		return "", newError(kind, opSign, err)
	}
	return signed, nil
}

// Truncate shortens s for logging.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
