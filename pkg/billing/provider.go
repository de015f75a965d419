package billing

import (
	"context"
	"net/http"
	"time"
)

// EventType classifies provider webhook events into the lifecycle
// transitions the service acts on.
type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout_completed"
	EventRenewalPaid          EventType = "renewal_paid"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
)

// Event is a provider webhook translated into provider-neutral terms.
// ID is the provider's event identifier, used for replay detection.
// UserID is only present on checkout events, where the provider echoes
// back the client reference set at checkout creation.
type Event struct {
	ID                 string
	Type               EventType
	SubscriptionID     string
	ProviderCustomerID string
	UserID             string
	Status             SubscriptionStatus
	CurrentPeriodEnd   time.Time
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

// Provider abstracts the payment provider. ParseWebhook must verify the
// request's signature before trusting any payload field and return
// ErrInvalidWebhook on failure; events the service does not act on map
// to ErrUnknownEventType.
type Provider interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (url string, err error)
	ParseWebhook(r *http.Request, body []byte) (*Event, error)
}
