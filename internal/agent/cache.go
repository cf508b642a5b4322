package agent

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const answerKeyPrefix = "classbot:answer:"

// AnswerCache stores language model answers keyed by CacheKey.
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, answer string) error
}

// CacheKey derives a cache key from the model, the context and the question.
func CacheKey(model, background, question string) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{model, background, question} {
		// Length-prefix each part so boundaries cannot collide.
		fmt.Fprintf(h, "%d:", len(part))
		h.Write([]byte(part))
	}
	return answerKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

type cachedAnswer struct {
	answer  string
	expires time.Time
}

// MemoryAnswerCache keeps answers in process memory.
type MemoryAnswerCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	answers map[string]cachedAnswer
}

// NewMemoryAnswerCache creates an in-memory cache. A ttl of zero keeps
// answers forever.
func NewMemoryAnswerCache(ttl time.Duration) *MemoryAnswerCache {
	return &MemoryAnswerCache{
		ttl:     ttl,
		answers: make(map[string]cachedAnswer),
	}
}

func (c *MemoryAnswerCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.answers[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		c.mu.Lock()
		delete(c.answers, key)
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.answer, true, nil
}

func (c *MemoryAnswerCache) Set(_ context.Context, key, answer string) error {
	entry := cachedAnswer{answer: answer}
	if c.ttl > 0 {
		entry.expires = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.answers[key] = entry
	c.mu.Unlock()
	return nil
}

// RedisAnswerCache shares answers between instances through Redis.
type RedisAnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAnswerCache(client *redis.Client, ttl time.Duration) *RedisAnswerCache {
	return &RedisAnswerCache{client: client, ttl: ttl}
}

func (c *RedisAnswerCache) Get(ctx context.Context, key string) (string, bool, error) {
	answer, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached answer: %w", err)
	}
	return answer, true, nil
}

func (c *RedisAnswerCache) Set(ctx context.Context, key, answer string) error {
	if err := c.client.Set(ctx, key, answer, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached answer: %w", err)
	}
	return nil
}
