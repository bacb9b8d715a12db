package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/angeloszaimis/asset-worker/config"
	"github.com/angeloszaimis/asset-worker/internal/assets"
	"github.com/angeloszaimis/asset-worker/internal/circuitbreaker"
	"github.com/angeloszaimis/asset-worker/internal/healthcheck"
	"github.com/angeloszaimis/asset-worker/internal/metrics"
	"github.com/angeloszaimis/asset-worker/internal/worker"
)

// newAssetsBinding builds the configured binding. For the origin driver with
// a health path it also starts the health check, which runs until ctx is done.
func newAssetsBinding(ctx context.Context, cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (worker.Fetcher, error) {
	switch cfg.Assets.Driver {
	case config.DriverDir:
		dir, err := assets.OpenDir(cfg.Assets.Dir.Root)
		if err != nil {
			return nil, err
		}
		return dir, nil

	case config.DriverOrigin:
		origin, err := newOriginBinding(ctx, cfg.Assets.Origin, log, collector)
		if err != nil {
			return nil, err
		}
		return origin, nil

	case config.DriverS3:
		s3 := cfg.Assets.S3
		bucket, err := assets.OpenS3(ctx, s3.Bucket, s3.Region, s3.Prefix)
		if err != nil {
			return nil, err
		}
		return bucket, nil

	default:
		return nil, fmt.Errorf("unknown assets driver %q", cfg.Assets.Driver)
	}
}

func newOriginBinding(ctx context.Context, oc config.OriginConfig, log *slog.Logger, collector *metrics.Collector) (*assets.Origin, error) {
	u, err := url.Parse(oc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse origin url: %w", err)
	}

	timeout, err := config.Duration(oc.Timeout)
	if err != nil {
		return nil, err
	}
	breakerTimeout, err := config.Duration(oc.BreakerTimeout)
	if err != nil {
		return nil, err
	}

	origin := assets.NewOrigin(u, timeout, circuitbreaker.New(oc.BreakerThreshold, breakerTimeout))
	if oc.HealthPath == "" {
		return origin, nil
	}

	interval, err := config.Duration(oc.HealthInterval)
	if err != nil {
		return nil, err
	}

	go healthcheck.HealthCheck(ctx, origin, oc.HealthPath, interval, log, func(healthy bool) {
		collector.Emit(metrics.MetricEvent{
			Type:    metrics.EventHealthChanged,
			Healthy: healthy,
		})
	})

	return origin, nil
}
