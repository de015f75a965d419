// Package logger builds configured slog.Logger instances with
// environment-aware defaults and context-based attribute injection.
package logger
