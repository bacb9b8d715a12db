package worker

import "net/http"

// Fetcher resolves a request to a static asset response.
type Fetcher interface {
	Fetch(r *http.Request) (*http.Response, error)
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(r *http.Request) (*http.Response, error)

// Fetch calls f(r).
func (f FetcherFunc) Fetch(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Env is the set of bindings handed to the handler on every invocation.
type Env struct {
	Assets Fetcher
}

// Handle forwards r to env.Assets and returns its response and error
// unchanged. It keeps no state between calls.
func Handle(r *http.Request, env Env) (*http.Response, error) {
	return env.Assets.Fetch(r)
}
