package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mossy-p/kvs-signaling/internal/middleware"
	"github.com/mossy-p/kvs-signaling/internal/models"
	"github.com/mossy-p/kvs-signaling/internal/probe"
)

func newSignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <endpoint> [key=value...]",
		Short: "Presign a signaling URL with the configured credentials",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			cfg, err := loadConfig("kvs-broker-cli")
			if err != nil {
				return err
			}

			signed, err := newServices(cfg).urlSigner.SignURL(commandContext(cmd.Context()), args[0], params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
}

func newInitializeCmd() *cobra.Command {
	var userID, channel string

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Assemble a viewer session against the live control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("kvs-broker-cli")
			if err != nil {
				return err
			}
			ctx := commandContext(cmd.Context())

			session, err := newServices(cfg).assembler.Assemble(ctx, userID, channel)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(models.NewInitializeResponse(*session))
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "viewer user id")
	cmd.Flags().StringVar(&channel, "channel", "", "channel name or ARN (defaults to configuration)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <signed-url>",
		Short: "Open and close the WebSocket handshake for a signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig("kvs-broker-cli"); err != nil {
				return err
			}
			res, err := probe.New().Probe(commandContext(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s accepted (HTTP %d) in %s\n", res.Endpoint, res.Status, res.Latency.Round(time.Millisecond))
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing of authenticated routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("kvs-broker-cli")
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// parseParams turns key=value arguments into query parameters.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, want key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
