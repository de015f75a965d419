package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds Paddle provider settings.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	PriceID       string `env:"PADDLE_PRICE_ID"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider against the Paddle Billing API.
// The user ID travels through checkout as transaction custom data and
// comes back on subscription events via custom data passthrough.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	priceID  string
}

func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.PriceID == "" {
		return nil, errors.New("paddle price id is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		priceID:  cfg.PriceID,
	}, nil
}

func (p *PaddleProvider) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  p.priceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": params.UserID,
		},
	}
	if params.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(params.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return "", fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return "", errors.New("no checkout URL returned from paddle")
	}
	return *transaction.Checkout.URL, nil
}

type paddleWebhookPayload struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID                   string         `json:"id"`
		SubscriptionID       string         `json:"subscription_id"`
		CustomerID           string         `json:"customer_id"`
		Status               string         `json:"status"`
		CustomData           map[string]any `json:"custom_data"`
		CurrentBillingPeriod struct {
			EndsAt string `json:"ends_at"`
		} `json:"current_billing_period"`
		BillingPeriod struct {
			EndsAt string `json:"ends_at"`
		} `json:"billing_period"`
	} `json:"data"`
}

func (p *PaddleProvider) ParseWebhook(r *http.Request, body []byte) (*Event, error) {
	// The verifier consumes the request body, which the caller already
	// read. Rebuild a request around the captured bytes.
	verifyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/webhook", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	verifyReq.Header.Set("Paddle-Signature", r.Header.Get("Paddle-Signature"))

	valid, err := p.verifier.Verify(verifyReq)
	if err != nil {
		return nil, errors.Join(ErrInvalidWebhook, err)
	}
	if !valid {
		return nil, ErrInvalidWebhook
	}

	var payload paddleWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(ErrInvalidWebhook, err)
	}

	event := &Event{
		ID:                 payload.EventID,
		ProviderCustomerID: payload.Data.CustomerID,
	}
	if userID, ok := payload.Data.CustomData["user_id"].(string); ok {
		event.UserID = userID
	}

	switch payload.EventType {
	case "subscription.created", "subscription.activated":
		event.Type = EventCheckoutCompleted
		event.SubscriptionID = payload.Data.ID
		event.Status = mapPaddleStatus(payload.Data.Status)
		event.CurrentPeriodEnd = parsePaddleTime(payload.Data.CurrentBillingPeriod.EndsAt)
	case "subscription.updated":
		event.Type = EventSubscriptionUpdated
		event.SubscriptionID = payload.Data.ID
		event.Status = mapPaddleStatus(payload.Data.Status)
		event.CurrentPeriodEnd = parsePaddleTime(payload.Data.CurrentBillingPeriod.EndsAt)
	case "subscription.canceled":
		event.Type = EventSubscriptionCanceled
		event.SubscriptionID = payload.Data.ID
		event.Status = StatusCanceled
	case "transaction.completed":
		event.Type = EventRenewalPaid
		event.SubscriptionID = payload.Data.SubscriptionID
		event.Status = StatusActive
		event.CurrentPeriodEnd = parsePaddleTime(payload.Data.BillingPeriod.EndsAt)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, payload.EventType)
	}

	if event.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: event %s carries no subscription id", ErrInvalidWebhook, payload.EventID)
	}
	return event, nil
}

func mapPaddleStatus(status string) SubscriptionStatus {
	switch status {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due":
		return StatusPastDue
	default:
		return StatusCanceled
	}
}

func parsePaddleTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

var _ Provider = (*PaddleProvider)(nil)
