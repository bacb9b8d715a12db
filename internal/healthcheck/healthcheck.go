package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Target is an upstream whose health can be probed and recorded.
type Target interface {
	URL() *url.URL
	SetHealthy(healthy bool) (changed bool)
}

// HealthCheck periodically sends GET requests to target's healthPath. A 200
// response marks the target healthy, anything else unhealthy. onChange, if
// not nil, is called after every status change.
func HealthCheck(
	ctx context.Context,
	target Target,
	healthPath string,
	interval time.Duration,
	logger *slog.Logger,
	onChange func(healthy bool),
) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	healthURL := target.URL().ResolveReference(&url.URL{Path: healthPath})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("origin", target.URL().String()))
			return

		case <-ticker.C:
			healthy := probe(ctx, client, healthURL.String())
			if !target.SetHealthy(healthy) {
				continue
			}

			if healthy {
				logger.Info("Origin is back up",
					slog.String("origin", target.URL().String()))
			} else {
				logger.Warn("Origin is down",
					slog.String("origin", target.URL().String()))
			}

			if onChange != nil {
				onChange(healthy)
			}
		}
	}
}

func probe(ctx context.Context, client *http.Client, healthURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK
}
