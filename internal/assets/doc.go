// Package assets implements the static asset bindings handed to the worker:
// a local directory, an upstream HTTP origin and an S3 bucket.
//
// Bindings never rewrite missing paths to index.html. A missing asset is a
// 404 response, not an error.
package assets
