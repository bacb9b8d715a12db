package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/asset-worker/config"
	"github.com/angeloszaimis/asset-worker/pkg/logger"
)

type rootOptions struct {
	configDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "asset-worker",
		Short:        "Serve static assets through a pass-through edge worker",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configDir, "config", "c", "", "Directory containing config.yaml (defaults to ./config and .)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newFetchCmd(opts))

	return rootCmd
}

func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	var paths []string
	if o.configDir != "" {
		paths = append(paths, o.configDir)
	}

	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New(os.Stderr, logger.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Environment: cfg.Server.Environment,
		AddSource:   cfg.Logging.Level == config.LogLevelDebug,
	})

	return cfg, log, nil
}
