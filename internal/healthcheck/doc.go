// Package healthcheck probes the HTTP asset origin and flips its health
// status based on the response of its health endpoint.
package healthcheck
