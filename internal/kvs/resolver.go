package kvs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/kvs-signaling/internal/metrics"
	"github.com/mossy-p/kvs-signaling/internal/models"
)

const (
	opDescribeChannel = "describe_channel"
	opGetEndpoints    = "get_signaling_endpoints"
	opGetIceConfig    = "get_ice_server_config"
)

// Resolver turns a channel name or ARN into its viewer endpoints.
type Resolver struct {
	api ChannelAPI
}

func NewResolver(api ChannelAPI) *Resolver {
	return &Resolver{api: api}
}

// IsARN reports whether s looks like an ARN rather than a channel name.
func IsARN(s string) bool {
	return strings.HasPrefix(s, "arn:")
}

// Resolve returns the channel with both WSS and HTTPS endpoints, or an error.
// A partial endpoint set is never returned.
func (r *Resolver) Resolve(ctx context.Context, nameOrARN string) (*models.ResolvedChannel, error) {
	nameOrARN = strings.TrimSpace(nameOrARN)
	if nameOrARN == "" {
		return nil, newError(ErrInvalidInput, opDescribeChannel, errors.New("channel name or ARN is required"))
	}

	identity := models.ChannelIdentity{ARN: nameOrARN}
	if !IsARN(nameOrARN) {
		arn, err := r.describe(ctx, nameOrARN)
		if err != nil {
			return nil, err
		}
		identity = models.ChannelIdentity{Name: nameOrARN, ARN: arn}
	}

	start := time.Now()
	out, err := r.api.GetSignalingChannelEndpoint(ctx, &kinesisvideo.GetSignalingChannelEndpointInput{
		ChannelARN: aws.String(identity.ARN),
		SingleMasterChannelEndpointConfiguration: &types.SingleMasterChannelEndpointConfiguration{
			Protocols: []types.ChannelProtocol{types.ChannelProtocolWss, types.ChannelProtocolHttps},
			Role:      types.ChannelRoleViewer,
		},
	})
	metrics.ObserveUpstream(opGetEndpoints, start, err)
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, newError(ErrChannelNotFound, opGetEndpoints, fmt.Errorf("channel %q: %w", identity.ARN, err))
		}
		return nil, classifyUpstream(opGetEndpoints, err)
	}

	endpoints, err := decodeEndpoints(out)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("channel_arn", identity.ARN).
		Str("wss", endpoints.WSS).
		Str("https", endpoints.HTTPS).
		Msg("Resolved signaling endpoints")

	return &models.ResolvedChannel{ChannelIdentity: identity, Endpoints: endpoints}, nil
}

func (r *Resolver) describe(ctx context.Context, name string) (string, error) {
	start := time.Now()
	out, err := r.api.DescribeSignalingChannel(ctx, &kinesisvideo.DescribeSignalingChannelInput{
		ChannelName: aws.String(name),
	})
	metrics.ObserveUpstream(opDescribeChannel, start, err)
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", newError(ErrChannelNotFound, opDescribeChannel, fmt.Errorf("channel %q: %w", name, err))
		}
		return "", classifyUpstream(opDescribeChannel, err)
	}
	return decodeChannelARN(name, out)
}

func decodeChannelARN(name string, out *kinesisvideo.DescribeSignalingChannelOutput) (string, error) {
	if out == nil || out.ChannelInfo == nil || aws.ToString(out.ChannelInfo.ChannelARN) == "" {
		return "", newError(ErrChannelNotFound, opDescribeChannel, fmt.Errorf("channel %q", name))
	}
	return aws.ToString(out.ChannelInfo.ChannelARN), nil
}

// decodeEndpoints requires both protocols to be present as absolute URLs.
func decodeEndpoints(out *kinesisvideo.GetSignalingChannelEndpointOutput) (models.SignalingEndpoints, error) {
	var endpoints models.SignalingEndpoints
	if out != nil {
		for _, item := range out.ResourceEndpointList {
			endpoint := aws.ToString(item.ResourceEndpoint)
			if endpoint == "" {
				continue
			}
			switch item.Protocol {
			case types.ChannelProtocolWss:
				endpoints.WSS = endpoint
			case types.ChannelProtocolHttps:
				endpoints.HTTPS = endpoint
			}
		}
	}

	var problems []string
	if !isAbsoluteURL(endpoints.WSS) {
		problems = append(problems, "WSS")
	}
	if !isAbsoluteURL(endpoints.HTTPS) {
		problems = append(problems, "HTTPS")
	}
	if len(problems) > 0 {
		return models.SignalingEndpoints{}, newError(ErrIncompleteEndpoints, opGetEndpoints,
			fmt.Errorf("missing or malformed %s endpoint", strings.Join(problems, " and ")))
	}
	return endpoints, nil
}

func isAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// classifyUpstream tags a control-plane failure; credential problems keep their own kind.
func classifyUpstream(op string, err error) error {
	if errors.Is(err, ErrMissingCredentials) {
		return newError(ErrMissingCredentials, op, err)
	}

	event := log.Warn().Err(err).Str("op", op)
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		event = event.Str("code", apiErr.ErrorCode())
	}
	event.Msg("Control-plane request failed")

	return newError(ErrUpstreamUnavailable, op, err)
}
