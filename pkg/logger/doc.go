// Package logger builds the worker's structured slog logger: JSON in prod,
// text elsewhere, with a configurable level and an environment attribute.
package logger
