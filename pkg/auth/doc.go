// Package auth implements passwordless authentication via magic links.
//
// A magic link is a single-use, time-limited URL that authenticates a user
// by email possession. Requesting a link for an unknown address registers
// the user (first login is signup); verifying a link marks the user
// verified and hands the caller an identity to bind into a session.
//
// Single-use enforcement goes through a ReplayGuard keyed by token ID,
// with in-memory and Redis implementations. User identifiers are opaque
// strings assigned here, never database integers: downstream systems join
// on them as strings end-to-end.
package auth
