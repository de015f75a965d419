// Package account exposes the authentication HTTP surface: requesting
// a magic link, verifying it into a session cookie, and logging out.
package account
