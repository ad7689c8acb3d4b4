package kvs

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo"
	kvtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideo/types"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling"
	sigtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling/types"

	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

const (
	testARN    = "arn:aws:kinesisvideo:us-east-1:123:channel/test/1"
	testWSS    = "wss://x.example.com/"
	testHTTPS  = "https://y.example.com/"
	testRegion = "us-east-1"
)

var (
	testCredentials = StaticCredentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"}
	testNow         = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
)

type fakeChannelAPI struct {
	describeOut *kinesisvideo.DescribeSignalingChannelOutput
	describeErr error
	endpointOut *kinesisvideo.GetSignalingChannelEndpointOutput
	endpointErr error

	describeInputs []*kinesisvideo.DescribeSignalingChannelInput
	endpointInputs []*kinesisvideo.GetSignalingChannelEndpointInput
}

func (f *fakeChannelAPI) DescribeSignalingChannel(_ context.Context, in *kinesisvideo.DescribeSignalingChannelInput, _ ...func(*kinesisvideo.Options)) (*kinesisvideo.DescribeSignalingChannelOutput, error) {
	f.describeInputs = append(f.describeInputs, in)
	return f.describeOut, f.describeErr
}

func (f *fakeChannelAPI) GetSignalingChannelEndpoint(_ context.Context, in *kinesisvideo.GetSignalingChannelEndpointInput, _ ...func(*kinesisvideo.Options)) (*kinesisvideo.GetSignalingChannelEndpointOutput, error) {
	f.endpointInputs = append(f.endpointInputs, in)
	return f.endpointOut, f.endpointErr
}

type fakeIceAPI struct {
	out *kinesisvideosignaling.GetIceServerConfigOutput
	err error

	inputs    []*kinesisvideosignaling.GetIceServerConfigInput
	endpoints []string
}

func (f *fakeIceAPI) GetIceServerConfig(_ context.Context, in *kinesisvideosignaling.GetIceServerConfigInput, optFns ...func(*kinesisvideosignaling.Options)) (*kinesisvideosignaling.GetIceServerConfigOutput, error) {
	f.inputs = append(f.inputs, in)
	var opts kinesisvideosignaling.Options
	for _, fn := range optFns {
		fn(&opts)
	}
	f.endpoints = append(f.endpoints, aws.ToString(opts.BaseEndpoint))
	return f.out, f.err
}

func endpointsOutput(wss, https string) *kinesisvideo.GetSignalingChannelEndpointOutput {
	out := &kinesisvideo.GetSignalingChannelEndpointOutput{}
	if wss != "" {
		out.ResourceEndpointList = append(out.ResourceEndpointList, kvtypes.ResourceEndpointListItem{
			Protocol:         kvtypes.ChannelProtocolWss,
			ResourceEndpoint: aws.String(wss),
		})
	}
	if https != "" {
		out.ResourceEndpointList = append(out.ResourceEndpointList, kvtypes.ResourceEndpointListItem{
			Protocol:         kvtypes.ChannelProtocolHttps,
			ResourceEndpoint: aws.String(https),
		})
	}
	return out
}

func describeOutput(arn string) *kinesisvideo.DescribeSignalingChannelOutput {
	return &kinesisvideo.DescribeSignalingChannelOutput{
		ChannelInfo: &kvtypes.ChannelInfo{ChannelARN: aws.String(arn)},
	}
}

func iceOutput(servers ...sigtypes.IceServer) *kinesisvideosignaling.GetIceServerConfigOutput {
	return &kinesisvideosignaling.GetIceServerConfigOutput{IceServerList: servers}
}

func fixedSigner() *sigv4.Signer {
	s := sigv4.NewSigner(testRegion, ServiceName)
	s.Now = func() time.Time { return testNow }
	return s
}

func newTestAssembler(channels *fakeChannelAPI, ice *fakeIceAPI) *Assembler {
	return &Assembler{
		Resolver:       NewResolver(channels),
		Relays:         NewRelayLister(ice, testRegion),
		Signer:         fixedSigner(),
		Credentials:    testCredentials,
		Region:         testRegion,
		DefaultChannel: testARN,
		Now:            func() time.Time { return testNow },
	}
}
