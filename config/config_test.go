package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with every known key unset.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	t.Setenv("CONFIG_ENV", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 299*time.Second, cfg.KVS.SignedURLExpires)
	assert.False(t, cfg.KVS.ClientIDTimestamp)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.HasCredentials())
	assert.False(t, cfg.ChannelConfigured())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173,")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("KVS_CHANNEL_NAME", "front-door")
	t.Setenv("CLIENT_ID_TIMESTAMP", "true")
	t.Setenv("SIGNED_URL_EXPIRES", "5m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "front-door", cfg.DefaultChannel())
	assert.True(t, cfg.KVS.ClientIDTimestamp)
	assert.Equal(t, 5*time.Minute, cfg.KVS.SignedURLExpires)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.10"}, cfg.TrustedProxies)
}

func TestDefaultChannelPrefersARN(t *testing.T) {
	cfg := &Config{KVS: KVSConfig{ChannelName: "front-door", ChannelARN: "arn:aws:kinesisvideo:us-east-1:123:channel/test/1"}}
	assert.Equal(t, "arn:aws:kinesisvideo:us-east-1:123:channel/test/1", cfg.DefaultChannel())
	assert.True(t, cfg.ChannelConfigured())
}

func TestLoadDotenvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv("KVS_CHANNEL_NAME"))
	t.Cleanup(func() { _ = os.Unsetenv("KVS_CHANNEL_NAME") })
	t.Setenv("AWS_REGION", "ap-south-1")

	content := "KVS_CHANNEL_NAME=from-dotenv\nAWS_REGION=us-west-2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.KVS.ChannelName)
	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("PORT", "7000")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := "port: \"6000\"\nallowed_origins:\n  - https://app.example.com\nkvs:\n  channel_arn: arn:aws:kinesisvideo:us-east-1:123:channel/test/1\nrate_limit:\n  requests: 5\n  window: 10s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port, "environment wins over file")
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "arn:aws:kinesisvideo:us-east-1:123:channel/test/1", cfg.KVS.ChannelARN)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"port":          {"PORT", "eighty"},
		"timeout":       {"REQUEST_TIMEOUT", "-1s"},
		"expires long":  {"SIGNED_URL_EXPIRES", "200h"},
		"expires short": {"SIGNED_URL_EXPIRES", "10ms"},
		"rate negative": {"RATE_LIMIT_REQUESTS", "-1"},
		"window zero":   {"RATE_LIMIT_WINDOW", "0s"},
		"proxy":         {"TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
