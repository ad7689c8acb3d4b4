package kvs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling"
)

// ServiceName is the SigV4 service for signaling channels.
const ServiceName = "kinesisvideo"

// ChannelAPI is the subset of the Kinesis Video control plane used to resolve channels.
type ChannelAPI interface {
	DescribeSignalingChannel(ctx context.Context, params *kinesisvideo.DescribeSignalingChannelInput, optFns ...func(*kinesisvideo.Options)) (*kinesisvideo.DescribeSignalingChannelOutput, error)
	GetSignalingChannelEndpoint(ctx context.Context, params *kinesisvideo.GetSignalingChannelEndpointInput, optFns ...func(*kinesisvideo.Options)) (*kinesisvideo.GetSignalingChannelEndpointOutput, error)
}

// IceConfigAPI issues relay server configuration for a channel.
type IceConfigAPI interface {
	GetIceServerConfig(ctx context.Context, params *kinesisvideosignaling.GetIceServerConfigInput, optFns ...func(*kinesisvideosignaling.Options)) (*kinesisvideosignaling.GetIceServerConfigOutput, error)
}

// NewChannelClient builds a control-plane client that never retries.
func NewChannelClient(region string, creds CredentialSource) *kinesisvideo.Client {
	return kinesisvideo.New(kinesisvideo.Options{
		Region:      region,
		Credentials: credentialsProvider(creds),
		Retryer:     aws.NopRetryer{},
	})
}

// NewIceConfigClient builds a signaling-plane client. Each call must name
// the channel's HTTPS endpoint; see withSignalingEndpoint.
func NewIceConfigClient(region string, creds CredentialSource) *kinesisvideosignaling.Client {
	return kinesisvideosignaling.New(kinesisvideosignaling.Options{
		Region:      region,
		Credentials: credentialsProvider(creds),
		Retryer:     aws.NopRetryer{},
	})
}

func withSignalingEndpoint(httpsEndpoint string) func(*kinesisvideosignaling.Options) {
	return func(o *kinesisvideosignaling.Options) {
		o.BaseEndpoint = aws.String(httpsEndpoint)
	}
}
