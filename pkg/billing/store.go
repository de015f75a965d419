package billing

import "context"

// SubscriptionStorage persists the local subscription cache and the set
// of processed webhook event IDs. Upsert keys on ProviderSubID.
// Implementations must return ErrSubscriptionNotFound for missing rows.
type SubscriptionStorage interface {
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)
	Upsert(ctx context.Context, sub *Subscription) error

	WasEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID string) error
}
