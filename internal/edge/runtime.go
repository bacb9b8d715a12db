package edge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/asset-worker/internal/metrics"
	"github.com/angeloszaimis/asset-worker/internal/worker"
)

var errNoResponse = errors.New("assets binding returned no response")

// HandlerFunc is the signature of the worker entry point.
type HandlerFunc func(r *http.Request, env worker.Env) (*http.Response, error)

type Runtime struct {
	logger           *slog.Logger
	handle           HandlerFunc
	env              worker.Env
	metricsCollector *metrics.Collector
}

// New returns a Runtime that calls worker.Handle with env. A nil collector
// disables metrics.
func New(logger *slog.Logger, env worker.Env, collector *metrics.Collector) *Runtime {
	return NewWithHandler(logger, worker.Handle, env, collector)
}

// NewWithHandler is like New but invokes handle instead of worker.Handle.
func NewWithHandler(logger *slog.Logger, handle HandlerFunc, env worker.Env, collector *metrics.Collector) *Runtime {
	return &Runtime{
		logger:           logger,
		handle:           handle,
		env:              env,
		metricsCollector: collector,
	}
}

func (rt *Runtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := rt.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	log.Debug("Received request",
		slog.String("from", extractClientIP(r)),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	rt.metricsCollector.Emit(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: start,
		Method:    r.Method,
	})

	resp, err := rt.handle(r, rt.env)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		rt.fail(w, r, log, err, time.Since(start))
		return
	}
	defer closeBody(resp)

	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	var written int64
	if r.Method != http.MethodHead && resp.Body != nil {
		written, err = io.Copy(w, resp.Body)
		if err != nil {
			log.Warn("Failed to stream response body",
				slog.Int64("bytes", written),
				slog.Any("err", err))
		}
	}

	duration := time.Since(start)
	rt.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Duration:   duration,
		StatusCode: resp.StatusCode,
	})

	log.Info("Served request",
		slog.Int("status", resp.StatusCode),
		slog.Int64("bytes", written),
		slog.Duration("duration", duration))
}

func (rt *Runtime) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, duration time.Duration) {
	rt.metricsCollector.Emit(metrics.MetricEvent{
		Type:      metrics.EventFetchFailed,
		Timestamp: time.Now(),
		Duration:  duration,
	})

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		log.Debug("Client went away", slog.Duration("duration", duration))
		return
	}

	log.Error("Asset fetch failed",
		slog.Any("err", err),
		slog.Duration("duration", duration))
	http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func closeBody(resp *http.Response) {
	if resp.Body != nil {
		resp.Body.Close()
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
