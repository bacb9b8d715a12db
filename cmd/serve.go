package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/asset-worker/config"
	"github.com/angeloszaimis/asset-worker/internal/edge"
	"github.com/angeloszaimis/asset-worker/internal/httpserver"
	"github.com/angeloszaimis/asset-worker/internal/metrics"
	"github.com/angeloszaimis/asset-worker/internal/worker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the worker and admin listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	binding, err := newAssetsBinding(ctx, cfg, log, collector)
	if err != nil {
		log.Error("Failed to create assets binding",
			slog.String("driver", cfg.Assets.Driver),
			slog.Any("err", err))
		return err
	}

	workerSrv, err := newWorkerServer(cfg, log, worker.Env{Assets: binding}, collector)
	if err != nil {
		log.Error("Failed to create worker server", slog.Any("err", err))
		return err
	}

	adminSrv, err := httpserver.New(cfg.Admin.Address, newAdminMux(collector, cfg.Assets.Driver))
	if err != nil {
		log.Error("Failed to create admin server", slog.Any("err", err))
		return err
	}

	srvErrCh := make(chan error, 2)
	for _, srv := range []*httpserver.Server{workerSrv, adminSrv} {
		go func(srv *httpserver.Server) {
			log.Info("Listening", slog.String("addr", srv.Addr()))
			srvErrCh <- srv.Start()
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-srvErrCh:
		if err != nil {
			log.Error("Server stopped unexpectedly", slog.Any("err", err))
		}
	}

	var shutdownErr error
	for _, srv := range []*httpserver.Server{workerSrv, adminSrv} {
		if e := srv.Shutdown(context.Background()); e != nil {
			log.Error("Error during shutdown", slog.String("addr", srv.Addr()), slog.Any("err", e))
			shutdownErr = errors.Join(shutdownErr, e)
		}
	}

	return errors.Join(err, shutdownErr)
}

func newWorkerServer(cfg *config.Config, log *slog.Logger, env worker.Env, collector *metrics.Collector) (*httpserver.Server, error) {
	read, err := config.Duration(cfg.Server.ReadTimeout)
	if err != nil {
		return nil, err
	}
	write, err := config.Duration(cfg.Server.WriteTimeout)
	if err != nil {
		return nil, err
	}
	idle, err := config.Duration(cfg.Server.IdleTimeout)
	if err != nil {
		return nil, err
	}

	return httpserver.New(cfg.Server.Address, edge.New(log, env, collector),
		httpserver.WithTimeouts(read, write, idle))
}

func newAdminMux(collector *metrics.Collector, binding string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/metrics", collector.Handler(binding))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	return mux
}
