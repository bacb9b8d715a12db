// Package worker implements the request handler of the asset worker.
// Every inbound request is forwarded, untouched, to the assets binding
// carried by the per-invocation Env, and the binding's response is
// returned as is.
package worker
