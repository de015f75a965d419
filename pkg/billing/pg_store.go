package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vivhq/viv/pkg/pg"
)

// PGStore is a PostgreSQL-backed SubscriptionStorage.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const subscriptionColumns = `user_id, provider_sub_id, provider_customer_id, status,
		current_period_end, created_at, updated_at, canceled_at`

// GetByUserID returns the user's most relevant subscription row. Rows
// are never deleted, so a cancel-then-resubscribe user has several; the
// ordering matches Subscription.outranks: entitling statuses first,
// then the most recently updated.
func (s *PGStore) GetByUserID(ctx context.Context, userID string) (*Subscription, error) {
	return s.getSubscription(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1
		ORDER BY (status IN ('active', 'trialing')) DESC, updated_at DESC
		LIMIT 1`, userID)
}

func (s *PGStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	return s.getSubscription(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_sub_id = $1`, providerSubID)
}

func (s *PGStore) getSubscription(ctx context.Context, query, arg string) (*Subscription, error) {
	var (
		sub              Subscription
		currentPeriodEnd *time.Time
		canceledAt       *time.Time
	)

	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&sub.UserID, &sub.ProviderSubID, &sub.ProviderCustomerID, &sub.Status,
		&currentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt, &canceledAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}

	if currentPeriodEnd != nil {
		sub.CurrentPeriodEnd = *currentPeriodEnd
	}
	sub.CanceledAt = canceledAt
	return &sub, nil
}

func (s *PGStore) Upsert(ctx context.Context, sub *Subscription) error {
	var periodEnd *time.Time
	if !sub.CurrentPeriodEnd.IsZero() {
		periodEnd = &sub.CurrentPeriodEnd
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, provider_sub_id, provider_customer_id, status,
			current_period_end, created_at, updated_at, canceled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_sub_id) DO UPDATE SET
			provider_customer_id = COALESCE(
				NULLIF(EXCLUDED.provider_customer_id, ''), subscriptions.provider_customer_id),
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at,
			canceled_at = EXCLUDED.canceled_at`,
		sub.UserID, sub.ProviderSubID, sub.ProviderCustomerID, sub.Status,
		periodEnd, sub.CreatedAt, sub.UpdatedAt, sub.CanceledAt)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *PGStore) WasEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return exists, nil
}

func (s *PGStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_events (event_id, processed_at) VALUES ($1, NOW())
		 ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}

var _ SubscriptionStorage = (*PGStore)(nil)
