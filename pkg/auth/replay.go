package auth

import (
	"context"
	"sync"
	"time"
)

// ReplayGuard enforces single-use semantics for magic link tokens.
// Consume records the token ID and returns ErrTokenAlreadyUsed if the
// same ID was consumed before within its lifetime.
type ReplayGuard interface {
	Consume(ctx context.Context, tokenID string, ttl time.Duration) error
}

// MemoryReplayGuard is an in-process ReplayGuard. Suitable for a single
// instance; use RedisReplayGuard when running multiple replicas.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{
		used: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (g *MemoryReplayGuard) Consume(ctx context.Context, tokenID string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)

	if expiry, ok := g.used[tokenID]; ok && now.Before(expiry) {
		return ErrTokenAlreadyUsed
	}

	g.used[tokenID] = now.Add(ttl)
	return nil
}

// sweep drops expired entries. Called under lock on every Consume; the
// map stays bounded by the number of tokens issued within one TTL window.
func (g *MemoryReplayGuard) sweep(now time.Time) {
	for id, expiry := range g.used {
		if now.After(expiry) {
			delete(g.used, id)
		}
	}
}

var _ ReplayGuard = (*MemoryReplayGuard)(nil)
