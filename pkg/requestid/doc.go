// Package requestid attaches a correlation ID to every HTTP request.
// A client-supplied X-Request-ID header is validated and reused,
// otherwise a UUID is generated; either way the ID lands in the request
// context, the response header, and, via LoggerExtractor, in every log
// record emitted while handling the request.
package requestid
