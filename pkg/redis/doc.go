// Package redis wraps the go-redis client with retrying connection
// setup and a health check. Redis is optional here: it backs the magic
// link replay guard when running more than one instance. Leave
// REDIS_URL empty to fall back to the in-process guard.
package redis
