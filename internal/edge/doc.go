// Package edge hosts the worker behind net/http. It invokes the request
// handler once per inbound request, writes the returned response back to
// the client and turns handler failures into a 502 page.
package edge
