package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cogniva-docs/internal/config"
	"cogniva-docs/internal/pkg/jwtutil"
)

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <client>",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config failed: %w", err)
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set, the API does not require tokens")
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute
			}
			token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, ttl, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.jwt_expire_minute)")
	return cmd
}
