// Package email sends transactional email through a pluggable sender
// interface with Resend and Postmark backends, plus a development sender
// that writes emails to disk instead of delivering them.
package email
