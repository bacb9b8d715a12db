package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angeloszaimis/asset-worker/internal/circuitbreaker"
)

// ErrOriginUnavailable is returned when the origin is marked unhealthy or
// its circuit breaker is open.
var ErrOriginUnavailable = errors.New("asset origin unavailable")

// Origin forwards asset requests to an upstream HTTP server.
type Origin struct {
	url       *url.URL
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
	mutex     sync.Mutex
	isHealthy bool
}

// NewOrigin creates a healthy origin binding for base. Requests time out
// after timeout; a nil breaker disables circuit breaking.
func NewOrigin(base *url.URL, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) *Origin {
	return &Origin{
		url: base,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker:   breaker,
		isHealthy: true,
	}
}

// URL returns the origin base URL.
func (o *Origin) URL() *url.URL {
	return o.url
}

// IsHealthy returns true if the origin is currently healthy.
func (o *Origin) IsHealthy() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.isHealthy
}

// SetHealthy updates the origin's health status.
// Returns true if the status changed, false if it was already in that state.
func (o *Origin) SetHealthy(healthy bool) (changed bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.isHealthy == healthy {
		return false
	}

	o.isHealthy = healthy
	return true
}

// Fetch implements worker.Fetcher. The inbound request is cloned, never
// modified, and the upstream response is returned as received.
func (o *Origin) Fetch(r *http.Request) (*http.Response, error) {
	if !o.IsHealthy() {
		return nil, fmt.Errorf("%w: %s is unhealthy", ErrOriginUnavailable, o.url.Host)
	}

	if o.breaker != nil {
		if err := o.breaker.Allow(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOriginUnavailable, err)
		}
	}

	resp, err := o.client.Do(o.outbound(r))
	if o.breaker != nil {
		if err != nil && clientGone(r, err) {
			o.breaker.Release()
		} else {
			o.breaker.Record(err == nil && resp.StatusCode < http.StatusInternalServerError)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s from origin: %w", r.URL.Path, err)
	}

	resp.Request = r
	return resp, nil
}

// clientGone reports whether err comes from the inbound request being
// cancelled rather than from the origin.
func clientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}

func (o *Origin) outbound(r *http.Request) *http.Request {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	out.Host = ""

	target := *o.url
	target.Path, target.RawPath = joinURLPath(o.url, r.URL)
	target.RawQuery = r.URL.RawQuery
	target.Fragment = ""
	out.URL = &target

	return out
}

func joinURLPath(a, b *url.URL) (path, rawpath string) {
	if a.RawPath == "" && b.RawPath == "" {
		return singleJoiningSlash(a.Path, b.Path), ""
	}

	apath := a.EscapedPath()
	bpath := b.EscapedPath()

	aslash := strings.HasSuffix(apath, "/")
	bslash := strings.HasPrefix(bpath, "/")

	switch {
	case aslash && bslash:
		return a.Path + b.Path[1:], apath + bpath[1:]
	case !aslash && !bslash:
		return a.Path + "/" + b.Path, apath + "/" + bpath
	}
	return a.Path + b.Path, apath + bpath
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
