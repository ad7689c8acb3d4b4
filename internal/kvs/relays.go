package kvs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling"
	"github.com/pion/stun/v3"
	"github.com/rs/zerolog/log"

	"github.com/mossy-p/kvs-signaling/internal/metrics"
	"github.com/mossy-p/kvs-signaling/internal/models"
)

// DefaultStunURL is the credential-free STUN server for a region.
func DefaultStunURL(region string) string {
	return fmt.Sprintf("stun:stun.kinesisvideo.%s.amazonaws.com:443", region)
}

// RelayLister fetches relay servers for a channel.
type RelayLister struct {
	api    IceConfigAPI
	region string
}

func NewRelayLister(api IceConfigAPI, region string) *RelayLister {
	return &RelayLister{api: api, region: region}
}

// List returns the regional STUN entry followed by the channel's TURN servers.
// An empty upstream list still yields the STUN entry.
func (l *RelayLister) List(ctx context.Context, channelARN, httpsEndpoint string) ([]models.IceServer, error) {
	if channelARN == "" || httpsEndpoint == "" {
		return nil, newError(ErrInvalidInput, opGetIceConfig, errors.New("channel ARN and HTTPS endpoint are required"))
	}

	start := time.Now()
	out, err := l.api.GetIceServerConfig(ctx, &kinesisvideosignaling.GetIceServerConfigInput{
		ChannelARN: aws.String(channelARN),
	}, withSignalingEndpoint(httpsEndpoint))
	metrics.ObserveUpstream(opGetIceConfig, start, err)
	if err != nil {
		return nil, classifyUpstream(opGetIceConfig, err)
	}

	return decodeIceServers(l.region, out), nil
}

func decodeIceServers(region string, out *kinesisvideosignaling.GetIceServerConfigOutput) []models.IceServer {
	servers := []models.IceServer{models.NewIceServer(DefaultStunURL(region), "", "")}
	if out == nil {
		return servers
	}

	for i, server := range out.IceServerList {
		uri, ok := firstRelayURI(server.Uris)
		if !ok {
			if len(server.Uris) > 0 {
				log.Warn().Int("index", i).Strs("uris", server.Uris).Msg("Skipping relay without a valid URI")
			}
			continue
		}
		servers = append(servers, models.NewIceServer(uri, aws.ToString(server.Username), aws.ToString(server.Password)))
	}
	return servers
}

// firstRelayURI returns the first URI that parses as a STUN/TURN URI.
func firstRelayURI(uris []string) (string, bool) {
	for _, raw := range uris {
		uri := strings.TrimSpace(raw)
		if uri == "" {
			continue
		}
		if _, err := stun.ParseURI(uri); err == nil {
			return uri, true
		}
	}
	return "", false
}
