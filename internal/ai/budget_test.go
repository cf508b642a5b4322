package ai

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemoryBudget_Unlimited(t *testing.T) {
	b := NewInMemoryBudget(0)
	ctx := context.Background()

	if err := b.Record(ctx, "s1", 1_000_000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	ok, err := b.Check(ctx, "s1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (zero limit means unlimited)")
	}
}

func TestInMemoryBudget_Limits(t *testing.T) {
	tests := []struct {
		name   string
		limit  int64
		record int
		want   bool
	}{
		{"within budget", 1000, 500, true},
		{"at budget", 100, 100, false},
		{"over budget", 100, 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewInMemoryBudget(tt.limit)
			ctx := context.Background()
			if err := b.Record(ctx, "s1", tt.record); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			ok, err := b.Check(ctx, "s1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("Check() = %v, want %v", ok, tt.want)
			}
			if other, _ := b.Check(ctx, "s2"); !other {
				t.Error("another session should be unaffected")
			}
		})
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget(10)
	if err := b.Record(context.Background(), "s1", -5); err == nil {
		t.Fatal("Record() should reject negative tokens")
	}
	if b.Usage("s1") != 0 {
		t.Errorf("Usage() = %d, want 0", b.Usage("s1"))
	}
}

func TestRedisBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := NewRedisBudget(client, 100, time.Hour)
	ctx := context.Background()

	ok, err := b.Check(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Check() on fresh session = %v, %v; want true, nil", ok, err)
	}

	if err := b.Record(ctx, "s1", 60); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if ok, _ := b.Check(ctx, "s1"); !ok {
		t.Error("Check() = false after 60/100 tokens")
	}
	if err := b.Record(ctx, "s1", 50); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if ok, _ := b.Check(ctx, "s1"); ok {
		t.Error("Check() = true after 110/100 tokens")
	}

	if ttl := mr.TTL(budgetKeyPrefix + "s1"); ttl <= 0 {
		t.Errorf("budget key TTL = %v, want positive", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if ok, _ := b.Check(ctx, "s1"); !ok {
		t.Error("Check() should reset after the session expires")
	}
}
