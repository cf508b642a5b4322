package ai

import (
	"context"
	"fmt"
	"sync"
)

// BudgetChecker checks and records token usage per browser session.
type BudgetChecker interface {
	// Check returns true if the session has budget remaining.
	Check(ctx context.Context, sessionID string) (bool, error)
	// Record adds token usage for a session.
	Record(ctx context.Context, sessionID string, tokens int) error
}

// InMemoryBudget applies the same token limit to every session.
// A limit of zero or less means unlimited.
type InMemoryBudget struct {
	limit int64
	mu    sync.RWMutex
	usage map[string]int64
}

// NewInMemoryBudget creates a budget tracker with a per-session limit.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
	}
}

func (b *InMemoryBudget) Check(_ context.Context, sessionID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[sessionID] < b.limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, sessionID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[sessionID] += int64(tokens)
	return nil
}

// Usage returns tokens used by a session.
func (b *InMemoryBudget) Usage(sessionID string) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[sessionID]
}
