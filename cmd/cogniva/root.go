package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"cogniva-docs/internal/bootstrap"
	"cogniva-docs/internal/config"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "cogniva",
		Short:         "Ask questions about a set of PDF documents",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configFile != "" {
				return os.Setenv("CONFIG_FILE", opts.configFile)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "TOML config file (default configs/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log service activity to stderr")

	cmd.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newTokenCmd(),
	)
	return cmd
}

// openApp wires the same service the HTTP server uses.
func openApp(ctx context.Context, opts *rootOptions) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	out := io.Discard
	if opts.verbose {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, nil))
	return bootstrap.NewWithConfig(ctx, cfg, logger)
}
