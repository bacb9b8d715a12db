// Package config loads the worker configuration from a YAML file, a .env
// file and environment variables, and validates it. It covers the listeners,
// logging, metrics and the asset binding (dir, origin or s3).
package config
