package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/classbot/internal/agent"
	"github.com/p-n-ai/classbot/internal/quiz"
)

func sampleState(id string) *agent.State {
	st := agent.NewState(id)
	st.Initialized = true
	st.ClassKey = "chapter_2"
	st.MainMessages = []agent.Message{{Role: "user", Content: "When is the exam?"}, {Role: "assistant", Content: "Week 12."}}
	st.ClassMessages["chapter_2"] = []agent.Message{{Role: "user", Content: "Test for mastery"}}
	st.LastFAQ = "When is the exam?"
	st.Quiz = &quiz.Snapshot{
		Mode: quiz.ModeMastery,
		Questions: []quiz.Question{
			{Text: "Q1", Choices: []quiz.Choice{{Label: "B", Text: "b"}, {Label: "A", Text: "a"}}, Correct: "A"},
			{Text: "Q2", Choices: []quiz.Choice{{Label: "A", Text: "a"}}, Correct: "A"},
		},
		Index:    1,
		Score:    1,
		Feedback: "Correct! 🎉 Here is the next question.",
	}
	return st
}

func assertSameState(t *testing.T, got, want *agent.State) {
	t.Helper()
	if got.ID != want.ID || got.ClassKey != want.ClassKey || got.LastFAQ != want.LastFAQ || !got.Initialized {
		t.Errorf("scalar fields = %+v, want %+v", got, want)
	}
	if len(got.MainMessages) != 2 || got.MainMessages[1].Content != "Week 12." {
		t.Errorf("MainMessages = %+v", got.MainMessages)
	}
	if len(got.Transcript("chapter_2")) != 1 {
		t.Errorf("class transcript = %+v", got.Transcript("chapter_2"))
	}
	if got.Quiz == nil {
		t.Fatal("quiz snapshot lost")
	}
	// Choice order must survive the round trip.
	if got.Quiz.Questions[0].Choices[0].Label != "B" || got.Quiz.Index != 1 || got.Quiz.Score != 1 {
		t.Errorf("quiz = %+v", got.Quiz)
	}
	if _, err := quiz.Restore(*got.Quiz); err != nil {
		t.Errorf("restored snapshot invalid: %v", err)
	}
}

func storeCases(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(client, time.Hour),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := NewID()

			if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load() of unknown id error = %v, want ErrNotFound", err)
			}

			want := sampleState(id)
			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := store.Load(ctx, id)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			assertSameState(t, got, want)

			if err := store.Delete(ctx, id); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	for name, store := range storeCases(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(context.Background(), agent.NewState("")); err == nil {
				t.Error("Save() without id should fail")
			}
		})
	}
}

func TestMemoryStore_IsolatesSavedCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	st := sampleState("s1")
	_ = store.Save(ctx, st)

	st.ClassKey = "chapter_9"
	got, _ := store.Load(ctx, "s1")
	if got.ClassKey != "chapter_2" {
		t.Errorf("unsaved change leaked into store: %q", got.ClassKey)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	_ = store.Save(ctx, sampleState("old"))
	now = now.Add(30 * time.Minute)
	_ = store.Save(ctx, sampleState("new"))
	now = now.Add(45 * time.Minute)

	if _, err := store.Load(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session error = %v, want ErrNotFound", err)
	}
	if _, err := store.Load(ctx, "new"); err != nil {
		t.Errorf("live session error = %v", err)
	}
	if n := store.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, time.Hour)
	_ = store.Save(ctx, sampleState("s1"))

	if ttl := mr.TTL(keyPrefix + "s1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after TTL error = %v, want ErrNotFound", err)
	}
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_ = mr.Set(keyPrefix+"bad", "{not json")
	_, err := NewRedisStore(client, 0).Load(context.Background(), "bad")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() of corrupt value error = %v, want decode error", err)
	}
}

func TestValidID(t *testing.T) {
	if !ValidID(NewID()) {
		t.Error("NewID() produced an invalid id")
	}
	for _, id := range []string{"", "abc", "../../etc"} {
		if ValidID(id) {
			t.Errorf("ValidID(%q) = true", id)
		}
	}
}
