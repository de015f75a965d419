// Package pg provides PostgreSQL connection pooling via pgx, schema
// migrations via goose, and health checking for readiness probes.
package pg
