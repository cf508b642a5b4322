package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const budgetKeyPrefix = "classbot:budget:"

// RedisBudget keeps per-session token usage in Redis so the limit holds
// across server instances. Usage expires with the session.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewRedisBudget creates a Redis-backed budget. A limit of zero or less means unlimited.
func NewRedisBudget(client *redis.Client, limit int64, ttl time.Duration) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, ttl: ttl}
}

func (b *RedisBudget) Check(ctx context.Context, sessionID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.client.Get(ctx, budgetKeyPrefix+sessionID).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read budget: %w", err)
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, sessionID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	key := budgetKeyPrefix + sessionID
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	if b.ttl > 0 {
		pipe.Expire(ctx, key, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record budget: %w", err)
	}
	return nil
}
