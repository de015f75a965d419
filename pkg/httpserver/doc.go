// Package httpserver wraps net/http.Server with graceful shutdown,
// signal handling, functional options and a health endpoint handler.
package httpserver
