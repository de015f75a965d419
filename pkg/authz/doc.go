// Package authz decouples route protection from the services that
// implement it. Handlers depend on a Guard with two capability slots,
// one answering "who is calling" and one answering "may they use paid
// features". Slots start as placeholders that fail closed with
// ErrNotBound; main binds real capabilities at startup, and tests bind
// stubs, without either touching handler code.
//
// The subscription capability wraps the authentication capability and
// short-circuits: if authentication fails, the billing layer is never
// consulted.
package authz
