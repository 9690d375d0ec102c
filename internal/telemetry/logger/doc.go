// Package logger provides structured logging for herdsman.
//
// This package wraps log/slog behind the Logger interface:
//
//   - logger.go: handler construction, levels, global default
//   - redact.go: sensitive attribute redaction
//
// Every Logger also satisfies the logger capability required by the
// configurator (debug, info, warn, error, fatal, close), so a telemetry
// logger can be assigned to the "logger" setting directly.
package logger
