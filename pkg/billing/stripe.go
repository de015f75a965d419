package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds Stripe provider settings.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	PriceID       string `env:"STRIPE_PRICE_ID"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeProvider implements Provider against the Stripe API. Checkout
// uses hosted Checkout Sessions with the user ID as the client
// reference; webhooks are verified with the endpoint signing secret.
type StripeProvider struct {
	api           *client.API
	priceID       string
	webhookSecret string
}

func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.PriceID == "" {
		return nil, errors.New("stripe price id is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}

	return &StripeProvider{
		api:           client.New(cfg.SecretKey, nil),
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(params.UserID),
		CustomerEmail:     stripe.String(params.Email),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.priceID),
			Quantity: stripe.Int64(1),
		}},
	}
	sessionParams.Context = ctx

	sess, err := p.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return sess.URL, nil
}

// Payload shapes are decoded from the raw event data instead of the
// SDK's typed structs: the fields used here are stable across Stripe
// API versions, while the structs track the pinned version and move
// fields between releases.
type stripeCheckoutSession struct {
	ClientReferenceID string `json:"client_reference_id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
}

type stripeInvoice struct {
	Subscription string `json:"subscription"`
	Customer     string `json:"customer"`
	Lines        struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

type stripeSubscription struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

func (p *StripeProvider) ParseWebhook(r *http.Request, body []byte) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), p.webhookSecret)
	if err != nil {
		return nil, errors.Join(ErrInvalidWebhook, err)
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var sess stripeCheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sess); err != nil {
			return nil, errors.Join(ErrInvalidWebhook, err)
		}
		return &Event{
			ID:                 stripeEvent.ID,
			Type:               EventCheckoutCompleted,
			SubscriptionID:     sess.Subscription,
			ProviderCustomerID: sess.Customer,
			UserID:             sess.ClientReferenceID,
			Status:             StatusActive,
		}, nil

	case "invoice.paid":
		var inv stripeInvoice
		if err := json.Unmarshal(stripeEvent.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrInvalidWebhook, err)
		}
		var periodEnd time.Time
		for _, line := range inv.Lines.Data {
			if end := time.Unix(line.Period.End, 0); end.After(periodEnd) {
				periodEnd = end
			}
		}
		return &Event{
			ID:                 stripeEvent.ID,
			Type:               EventRenewalPaid,
			SubscriptionID:     inv.Subscription,
			ProviderCustomerID: inv.Customer,
			Status:             StatusActive,
			CurrentPeriodEnd:   periodEnd,
		}, nil

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrInvalidWebhook, err)
		}
		eventType := EventSubscriptionUpdated
		status := mapStripeStatus(sub.Status)
		if stripeEvent.Type == "customer.subscription.deleted" {
			eventType = EventSubscriptionCanceled
			status = StatusCanceled
		}
		var periodEnd time.Time
		if sub.CurrentPeriodEnd > 0 {
			periodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
		}
		return &Event{
			ID:                 stripeEvent.ID,
			Type:               eventType,
			SubscriptionID:     sub.ID,
			ProviderCustomerID: sub.Customer,
			Status:             status,
			CurrentPeriodEnd:   periodEnd,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, stripeEvent.Type)
	}
}

func mapStripeStatus(status string) SubscriptionStatus {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid":
		return StatusPastDue
	default:
		return StatusCanceled
	}
}

var _ Provider = (*StripeProvider)(nil)
