// Package session persists per-browser classbot state between requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/classbot/internal/agent"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const keyPrefix = "classbot:session:"

// Store loads and saves session state.
type Store interface {
	Load(ctx context.Context, id string) (*agent.State, error)
	Save(ctx context.Context, st *agent.State) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// MemoryStore keeps sessions in process memory. Entries idle for longer than
// the TTL are treated as missing.
type MemoryStore struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
	sessions map[string][]byte
	touched  map[string]time.Time
}

// NewMemoryStore creates an in-memory store. A ttl of zero never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string][]byte),
		touched:  make(map[string]time.Time),
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*agent.State, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	touched := s.touched[id]
	s.mu.RUnlock()

	if !ok || (s.ttl > 0 && s.now().Sub(touched) > s.ttl) {
		return nil, ErrNotFound
	}
	return decode(data)
}

// Save stores a copy of st, so later changes to st are not visible until the
// next Save.
func (s *MemoryStore) Save(_ context.Context, st *agent.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[st.ID] = data
	s.touched[st.ID] = s.now()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	delete(s.touched, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, at := range s.touched {
		if now.Sub(at) > s.ttl {
			delete(s.sessions, id)
			delete(s.touched, id)
			removed++
		}
	}
	return removed
}

// RedisStore keeps sessions in Redis as JSON, refreshing the TTL on every save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*agent.State, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, st *agent.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+st.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func encode(st *agent.State) ([]byte, error) {
	if st == nil || st.ID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*agent.State, error) {
	var st agent.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if st.ClassMessages == nil {
		st.ClassMessages = make(map[string][]agent.Message)
	}
	return &st, nil
}
