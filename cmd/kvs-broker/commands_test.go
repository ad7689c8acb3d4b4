package main

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/kvs-signaling/config"
	"github.com/mossy-p/kvs-signaling/internal/ratelimit"
)

// isolateEnv runs the command in an empty directory with a known environment.
func isolateEnv(t *testing.T, env map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_REGION",
		"KVS_CHANNEL_NAME", "KVS_CHANNEL_ARN", "JWT_SECRET", "CONFIG_ENV", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := Version, BuildTime, GitCommit
	defer func() {
		Version, BuildTime, GitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2024-01-02"
	GitCommit = "abcdef"

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "kvs-broker 1.2.3")
	assert.Contains(t, out, "Built: 2024-01-02")
	assert.Contains(t, out, "Commit: abcdef")
}

func TestSignCmd(t *testing.T) {
	isolateEnv(t, map[string]string{
		"AWS_ACCESS_KEY_ID":     "AKIDEXAMPLE",
		"AWS_SECRET_ACCESS_KEY": "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		"AWS_REGION":            "eu-west-1",
	})

	out, err := execute(t, "sign", "wss://x.example.com/", "X-Amz-ChannelARN=arn:aws:kinesisvideo:eu-west-1:123:channel/test/1", "X-Amz-ClientId=VIEWER-u1")
	require.NoError(t, err)

	u, err := url.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "x.example.com", u.Host)
	assert.Equal(t, "VIEWER-u1", q.Get("X-Amz-ClientId"))
	assert.Contains(t, q.Get("X-Amz-Credential"), "/eu-west-1/kinesisvideo/aws4_request")
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
}

func TestSignCmdErrors(t *testing.T) {
	isolateEnv(t, nil)

	_, err := execute(t, "sign", "wss://x.example.com/")
	assert.ErrorContains(t, err, "missing credentials")

	_, err = execute(t, "sign", "wss://x.example.com/", "novalue")
	assert.ErrorContains(t, err, "want key=value")

	_, err = execute(t, "sign")
	assert.Error(t, err)
}

func TestTokenCmd(t *testing.T) {
	isolateEnv(t, map[string]string{"JWT_SECRET": "test-secret"})

	out, err := execute(t, "token", "--user", "u1", "--ttl", "1h")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestTokenCmdRequiresSecret(t *testing.T) {
	isolateEnv(t, nil)

	_, err := execute(t, "token", "--user", "u1")
	assert.ErrorContains(t, err, "jwt secret")

	_, err = execute(t, "token")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"a=1", "b=", "c=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": "x=y"}, params)

	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Requests: 0}}
	limiter, client, err := newLimiter(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.Nil(t, client)

	cfg.RateLimit = config.RateLimitConfig{Requests: 5, Window: time.Minute}
	limiter, client, err = newLimiter(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.MemoryLimiter{}, limiter)
	assert.Nil(t, client)
}

func TestNewServicesUsesConfiguredExpiry(t *testing.T) {
	cfg := &config.Config{
		AWS: config.AWSConfig{Region: "us-west-2"},
		KVS: config.KVSConfig{ChannelName: "front-door", SignedURLExpires: time.Minute, ClientIDTimestamp: true},
	}
	svc := newServices(cfg)
	assert.Equal(t, time.Minute, svc.assembler.Signer.Expires)
	assert.Equal(t, "us-west-2", svc.assembler.Signer.Scope.Region)
	assert.Equal(t, "front-door", svc.assembler.DefaultChannel)
	assert.True(t, svc.assembler.TimestampClientID)
	assert.Same(t, svc.assembler.Signer, svc.urlSigner.Signer)
}
