// Package token provides compact HMAC-SHA256 signed tokens carrying a
// JSON payload, used for magic links and similar short-lived grants.
//
// Tokens are signed, not encrypted: the payload is readable by anyone
// holding the token, so it must never contain secrets. Integrity is what
// matters here; tampering or truncation fails signature verification.
package token
