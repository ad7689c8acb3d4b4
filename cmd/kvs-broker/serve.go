package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mossy-p/kvs-signaling/config"
	"github.com/mossy-p/kvs-signaling/internal/handlers"
	"github.com/mossy-p/kvs-signaling/internal/kvs"
	"github.com/mossy-p/kvs-signaling/internal/ratelimit"
	"github.com/mossy-p/kvs-signaling/internal/redis"
	"github.com/mossy-p/kvs-signaling/internal/sigv4"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// services are the broker components shared by the server and the CLI.
type services struct {
	assembler *kvs.Assembler
	urlSigner *kvs.URLSigner
}

func newServices(cfg *config.Config) *services {
	creds := kvs.StaticCredentials{
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
	}

	signer := sigv4.NewSigner(cfg.AWS.Region, kvs.ServiceName)
	signer.Expires = cfg.KVS.SignedURLExpires

	return &services{
		assembler: &kvs.Assembler{
			Resolver:          kvs.NewResolver(kvs.NewChannelClient(cfg.AWS.Region, creds)),
			Relays:            kvs.NewRelayLister(kvs.NewIceConfigClient(cfg.AWS.Region, creds), cfg.AWS.Region),
			Signer:            signer,
			Credentials:       creds,
			Region:            cfg.AWS.Region,
			DefaultChannel:    cfg.DefaultChannel(),
			TimestampClientID: cfg.KVS.ClientIDTimestamp,
			Now:               time.Now,
		},
		urlSigner: &kvs.URLSigner{Signer: signer, Credentials: creds},
	}
}

// newLimiter picks the shared Redis limiter when enabled, else a per-process one.
// The returned client is nil unless Redis is in use.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, *goredis.Client, error) {
	if cfg.RateLimit.Requests == 0 {
		return nil, nil, nil
	}
	if !cfg.Redis.Enabled {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), nil, nil
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis connection established")
	return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), client, nil
}

func runServer(parent context.Context) error {
	cfg, err := loadConfig("kvs-broker")
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.HasCredentials() {
		log.Warn().Msg("AWS credentials are not configured; session requests will fail")
	}
	if !cfg.ChannelConfigured() {
		log.Warn().Msg("No default channel configured; requests must name one")
	}

	svc := newServices(cfg)

	limiter, redisClient, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.SetupRouter(cfg, handlers.Dependencies{
		Sessions: svc.assembler,
		Signer:   svc.urlSigner,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("region", cfg.AWS.Region).
			Str("environment", cfg.Environment).
			Msg("Starting KVS signaling broker")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
