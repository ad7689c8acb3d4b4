package kvs

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling"
	sigtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideosignaling/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/kvs-signaling/internal/models"
)

func TestListEmptyUpstreamYieldsImplicitStun(t *testing.T) {
	for name, out := range map[string]*kinesisvideosignaling.GetIceServerConfigOutput{
		"empty list": iceOutput(),
		"nil output": nil,
	} {
		t.Run(name, func(t *testing.T) {
			api := &fakeIceAPI{out: out}
			servers, err := NewRelayLister(api, testRegion).List(context.Background(), testARN, testHTTPS)
			require.NoError(t, err)
			assert.Equal(t, []models.IceServer{{URLs: "stun:stun.kinesisvideo.us-east-1.amazonaws.com:443"}}, servers)
		})
	}
}

func TestListUsesChannelHTTPSEndpoint(t *testing.T) {
	api := &fakeIceAPI{out: iceOutput()}

	_, err := NewRelayLister(api, testRegion).List(context.Background(), testARN, testHTTPS)
	require.NoError(t, err)

	require.Len(t, api.inputs, 1)
	assert.Equal(t, testARN, aws.ToString(api.inputs[0].ChannelARN))
	assert.Equal(t, []string{testHTTPS}, api.endpoints)
}

func TestListBuildsEntries(t *testing.T) {
	api := &fakeIceAPI{out: iceOutput(
		sigtypes.IceServer{
			Uris:     []string{"turn:1-2-3-4.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=udp", "turns:other:443"},
			Username: aws.String("1700000000:channel"),
			Password: aws.String("secret"),
		},
		sigtypes.IceServer{Uris: nil, Username: aws.String("ignored"), Password: aws.String("ignored")},
		sigtypes.IceServer{Uris: []string{"turns:5-6-7-8.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=tcp"}, Username: aws.String(""), Password: aws.String("")},
		sigtypes.IceServer{Uris: []string{"turn:9-9-9-9.example.com:443"}, Username: aws.String("only-user")},
		sigtypes.IceServer{Uris: []string{"http://not-a-relay"}, Username: aws.String("u"), Password: aws.String("p")},
	)}

	servers, err := NewRelayLister(api, "eu-west-1").List(context.Background(), testARN, testHTTPS)
	require.NoError(t, err)

	assert.Equal(t, []models.IceServer{
		{URLs: "stun:stun.kinesisvideo.eu-west-1.amazonaws.com:443"},
		{URLs: "turn:1-2-3-4.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=udp", Username: "1700000000:channel", Credential: "secret"},
		{URLs: "turns:5-6-7-8.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=tcp"},
		{URLs: "turn:9-9-9-9.example.com:443"},
	}, servers)
}

func TestListUsesFirstValidURI(t *testing.T) {
	api := &fakeIceAPI{out: iceOutput(
		sigtypes.IceServer{
			Uris:     []string{"http://not-a-relay", " ", "turns:1-2-3-4.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=tcp", "turn:later:443"},
			Username: aws.String("user"),
			Password: aws.String("pass"),
		},
		sigtypes.IceServer{Uris: []string{"http://a", "ftp://b"}},
	)}

	servers, err := NewRelayLister(api, testRegion).List(context.Background(), testARN, testHTTPS)
	require.NoError(t, err)

	assert.Equal(t, []models.IceServer{
		{URLs: DefaultStunURL(testRegion)},
		{URLs: "turns:1-2-3-4.t-abc.kinesisvideo.us-east-1.amazonaws.com:443?transport=tcp", Username: "user", Credential: "pass"},
	}, servers)
}

func TestListUpstreamFailure(t *testing.T) {
	cause := errors.New("throttled")
	api := &fakeIceAPI{err: cause}

	servers, err := NewRelayLister(api, testRegion).List(context.Background(), testARN, testHTTPS)
	assert.Nil(t, servers)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestListRequiresChannel(t *testing.T) {
	_, err := NewRelayLister(&fakeIceAPI{}, testRegion).List(context.Background(), "", testHTTPS)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
