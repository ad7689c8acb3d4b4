package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mossy-p/kvs-signaling/config"
	"github.com/mossy-p/kvs-signaling/internal/logging"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kvs-broker",
		Short: "Signaling broker for Kinesis Video Streams WebRTC viewers",
		Long: `kvs-broker hands mobile and web viewers everything they need to join a
Kinesis Video Streams signaling channel: a presigned WebSocket URL, a client id
and the channel's STUN/TURN servers. AWS credentials never leave the server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCmd(),
		newSignCmd(),
		newInitializeCmd(),
		newProbeCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "kvs-broker %s\n", Version)
	if BuildTime != "unknown" {
		fmt.Fprintf(w, "Built: %s\n", BuildTime)
	}
	if GitCommit != "unknown" {
		fmt.Fprintf(w, "Commit: %s\n", GitCommit)
	}
}

// loadConfig loads configuration and re-initializes logging from it.
func loadConfig(component string) (*config.Config, error) {
	// Baseline defaults for early startup logs
	logging.Init(logging.Config{Format: "auto", Level: "info", Component: component})

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     cfg.Log.Level,
		Component: component,
	})
	return cfg, nil
}

// commandContext attaches the global logger so request-scoped helpers log too.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return log.Logger.WithContext(ctx)
}
