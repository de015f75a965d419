// Package billing exposes the billing HTTP surface: starting a
// checkout, reading the caller's subscription, and the provider
// webhook endpoint.
package billing
