package billing

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotEntitled          = errors.New("active subscription required")
	ErrInvalidWebhook       = errors.New("invalid webhook payload")
	ErrUnknownEventType     = errors.New("unknown webhook event type")
	ErrCheckoutFailed       = errors.New("failed to create checkout session")
)
