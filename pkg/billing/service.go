package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Service coordinates checkout creation and webhook-driven subscription
// state. Reads never call the provider: entitlement checks hit only the
// local cache, which webhooks keep current.
type Service struct {
	storage  SubscriptionStorage
	provider Provider
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(storage SubscriptionStorage, provider Provider, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}

	s := &Service{
		storage:  storage,
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCheckout returns a provider-hosted checkout URL for the user.
// No local state changes until the provider confirms via webhook.
func (s *Service) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	url, err := s.provider.CreateCheckout(ctx, params)
	if err != nil {
		return "", errors.Join(ErrCheckoutFailed, err)
	}

	s.logger.InfoContext(ctx, "checkout session created", slog.String("user_id", params.UserID))
	return url, nil
}

// GetSubscription returns the cached subscription for the user.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	return s.storage.GetByUserID(ctx, userID)
}

// GetCustomer returns the provider customer mapping for the user, or
// nil when no provider event has established one yet.
func (s *Service) GetCustomer(ctx context.Context, userID string) (*Customer, error) {
	sub, err := s.storage.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub.ProviderCustomerID == "" {
		return nil, nil
	}
	return &Customer{UserID: sub.UserID, ProviderCustomerID: sub.ProviderCustomerID}, nil
}

// RequireSubscription returns the user's subscription when it grants
// access and ErrNotEntitled otherwise, including when no subscription
// exists at all.
func (s *Service) RequireSubscription(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := s.storage.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, ErrNotEntitled
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if !sub.IsEntitled(s.now()) {
		return nil, ErrNotEntitled
	}
	return sub, nil
}

// CheckEntitlement reports entitlement without returning the row.
// It satisfies the narrow checker interface route guards depend on.
func (s *Service) CheckEntitlement(ctx context.Context, userID string) error {
	_, err := s.RequireSubscription(ctx, userID)
	return err
}

// HandleWebhook verifies and applies a provider webhook. It is safe to
// call with the same delivery any number of times: processed event IDs
// short-circuit, subscriptions upsert by provider subscription ID, and
// the period end never moves backward.
func (s *Service) HandleWebhook(ctx context.Context, event *Event) error {
	processed, err := s.storage.WasEventProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		s.logger.InfoContext(ctx, "webhook event already processed",
			slog.String("event_id", event.ID))
		return nil
	}

	if err := s.applyEvent(ctx, event); err != nil {
		return err
	}

	if err := s.storage.MarkEventProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	s.logger.InfoContext(ctx, "webhook event applied",
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("subscription_id", event.SubscriptionID))
	return nil
}

func (s *Service) applyEvent(ctx context.Context, event *Event) error {
	if event.SubscriptionID == "" {
		return ErrInvalidWebhook
	}

	now := s.now().UTC()
	sub, err := s.storage.GetByProviderSubID(ctx, event.SubscriptionID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		// First sight of this subscription. Only checkout events carry
		// the user attribution; anything else arriving first means the
		// provider delivered out of order, so fail and let it retry
		// after the checkout event lands.
		if event.UserID == "" {
			return fmt.Errorf("%w: no local subscription %s and event carries no user reference",
				ErrInvalidWebhook, event.SubscriptionID)
		}
		sub = &Subscription{
			UserID:        event.UserID,
			ProviderSubID: event.SubscriptionID,
			CreatedAt:     now,
		}
	case err != nil:
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	sub.Status = event.Status
	sub.UpdatedAt = now
	if event.ProviderCustomerID != "" {
		sub.ProviderCustomerID = event.ProviderCustomerID
	}
	// Absolute timestamps make replays harmless: the stored period end
	// only advances, never re-extends.
	if event.CurrentPeriodEnd.After(sub.CurrentPeriodEnd) {
		sub.CurrentPeriodEnd = event.CurrentPeriodEnd
	}
	if event.Type == EventSubscriptionCanceled && sub.CanceledAt == nil {
		sub.CanceledAt = &now
	}

	return s.storage.Upsert(ctx, sub)
}
