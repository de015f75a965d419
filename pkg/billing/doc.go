// Package billing manages subscription state driven by payment provider
// webhooks. The local subscriptions table is a cache of provider truth:
// checkout never writes a row directly, webhooks do. Webhook handling is
// idempotent at three levels: processed event IDs are recorded and
// skipped on replay, subscriptions upsert by provider subscription ID,
// and period ends only move forward, so a replayed renewal can never
// extend an entitlement twice.
//
// Two providers are supported, Stripe and Paddle, behind a common
// Provider interface selected at startup.
package billing
