package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard is a Redis-backed ReplayGuard for multi-instance
// deployments. SET NX gives atomic first-consumer-wins semantics; the
// key expires with the token so storage never grows unbounded.
type RedisReplayGuard struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisReplayGuard(client redis.UniversalClient) *RedisReplayGuard {
	return &RedisReplayGuard{
		client:    client,
		keyPrefix: "auth:magic_link:used:",
	}
}

func (g *RedisReplayGuard) Consume(ctx context.Context, tokenID string, ttl time.Duration) error {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if !ok {
		return ErrTokenAlreadyUsed
	}
	return nil
}

var _ ReplayGuard = (*RedisReplayGuard)(nil)
