package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// maxPresignExpiry is the SigV4 limit for X-Amz-Expires.
const maxPresignExpiry = 7 * 24 * time.Hour

type Config struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"` // Empty: X-Forwarded-For is ignored
	JWTSecret      string        `mapstructure:"jwt_secret"` // Empty disables bearer auth
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Log       LogConfig       `mapstructure:"log"`
	AWS       AWSConfig       `mapstructure:"aws"`
	KVS       KVSConfig       `mapstructure:"kvs"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

type KVSConfig struct {
	ChannelName       string        `mapstructure:"channel_name"`
	ChannelARN        string        `mapstructure:"channel_arn"`
	SignedURLExpires  time.Duration `mapstructure:"signed_url_expires"`
	ClientIDTimestamp bool          `mapstructure:"client_id_timestamp"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"` // 0 disables limiting
	Window   time.Duration `mapstructure:"window"`
}

// env var names per config key
var envBindings = map[string]string{
	"port":                    "PORT",
	"environment":             "ENVIRONMENT",
	"allowed_origins":         "ALLOWED_ORIGINS",
	"trusted_proxies":         "TRUSTED_PROXIES",
	"jwt_secret":              "JWT_SECRET",
	"request_timeout":         "REQUEST_TIMEOUT",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
	"aws.region":              "AWS_REGION",
	"aws.access_key_id":       "AWS_ACCESS_KEY_ID",
	"aws.secret_access_key":   "AWS_SECRET_ACCESS_KEY",
	"aws.session_token":       "AWS_SESSION_TOKEN",
	"kvs.channel_name":        "KVS_CHANNEL_NAME",
	"kvs.channel_arn":         "KVS_CHANNEL_ARN",
	"kvs.signed_url_expires":  "SIGNED_URL_EXPIRES",
	"kvs.client_id_timestamp": "CLIENT_ID_TIMESTAMP",
	"redis.enabled":           "REDIS_ENABLED",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"rate_limit.requests":     "RATE_LIMIT_REQUESTS",
	"rate_limit.window":       "RATE_LIMIT_WINDOW",
}

// dotenvFiles are read in order; earlier files and the real environment win.
var dotenvFiles = []string{".env.local", ".env"}

// Load reads .env files, an optional config/config.<CONFIG_ENV>.yaml, and the
// environment, in increasing order of precedence. It runs once at startup.
func Load() (*Config, error) {
	for _, name := range dotenvFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	env := getEnv("CONFIG_ENV", "dev")
	v.SetConfigFile(fmt.Sprintf("config/config.%s.yaml", env))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.TrustedProxies = cleanList(cfg.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("kvs.signed_url_expires", "299s")
	v.SetDefault("kvs.client_id_timestamp", false)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")
}

// Validate rejects settings the server cannot start with. Missing AWS
// credentials are allowed so that health checks can report them.
func (c *Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if strings.TrimSpace(c.AWS.Region) == "" {
		return errors.New("AWS_REGION must not be empty")
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
		}
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.KVS.SignedURLExpires < time.Second || c.KVS.SignedURLExpires > maxPresignExpiry {
		return fmt.Errorf("SIGNED_URL_EXPIRES must be between 1s and %s", maxPresignExpiry)
	}
	if c.RateLimit.Requests < 0 {
		return errors.New("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

// HasCredentials reports whether both key components are configured.
func (c *Config) HasCredentials() bool {
	return c.AWS.AccessKeyID != "" && c.AWS.SecretAccessKey != ""
}

// DefaultChannel prefers the configured ARN over the channel name.
func (c *Config) DefaultChannel() string {
	if c.KVS.ChannelARN != "" {
		return c.KVS.ChannelARN
	}
	return c.KVS.ChannelName
}

func (c *Config) ChannelConfigured() bool {
	return c.DefaultChannel() != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// validProxy accepts an IP address or a CIDR range.
func validProxy(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
