package billing

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory SubscriptionStorage used when no
// DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	byUser    map[string]map[string]*Subscription
	bySubID   map[string]*Subscription
	processed map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser:    make(map[string]map[string]*Subscription),
		bySubID:   make(map[string]*Subscription),
		processed: make(map[string]struct{}),
	}
}

// GetByUserID returns the user's most relevant subscription row, using
// the same ordering PGStore encodes in SQL.
func (s *MemoryStore) GetByUserID(ctx context.Context, userID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Subscription
	for _, sub := range s.byUser[userID] {
		if sub.outranks(best) {
			best = sub
		}
	}
	if best == nil {
		return nil, ErrSubscriptionNotFound
	}
	return copySubscription(best), nil
}

func (s *MemoryStore) GetByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.bySubID[providerSubID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return copySubscription(sub), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copySubscription(sub)
	s.bySubID[stored.ProviderSubID] = stored
	if s.byUser[stored.UserID] == nil {
		s.byUser[stored.UserID] = make(map[string]*Subscription)
	}
	s.byUser[stored.UserID][stored.ProviderSubID] = stored
	return nil
}

func (s *MemoryStore) WasEventProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *MemoryStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed[eventID] = struct{}{}
	return nil
}

func copySubscription(sub *Subscription) *Subscription {
	c := *sub
	if sub.CanceledAt != nil {
		v := *sub.CanceledAt
		c.CanceledAt = &v
	}
	return &c
}

var _ SubscriptionStorage = (*MemoryStore)(nil)
