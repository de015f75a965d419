// Package session implements stateless, cookie-carried sessions.
//
// A session is an encrypted token binding a user ID to an issue and expiry
// time. The server keeps no session table: validity is purely a function of
// decrypting the token (AES-256-GCM, integrity tag included) and checking
// its expiry. This keeps horizontal scaling trivial at the cost of
// pre-expiry revocation; logout deletes the cookie, and the token TTL
// bounds how long a leaked cookie stays usable. If server-side revocation
// is ever required, a revocation set keyed by token ID must be added.
//
// Expired, malformed and tampered tokens are deliberately indistinguishable
// to callers: Validate returns ErrInvalidSession for all of them, leaking
// nothing about why validation failed.
package session
