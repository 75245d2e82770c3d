package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/elli-study/elli/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	s := &models.Session{
		ID:        "s1",
		Condition: models.ConditionChatbot,
		Step:      models.StepMood,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Append(models.SpeakerBot, "hi", s.CreatedAt)

	if err := store.Put(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Step != models.StepMood || len(got.Transcript) != 1 {
		t.Fatalf("restored session: %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Step = models.StepDone
	again, _ := store.Get(ctx, "s1")
	if again.Step != models.StepMood {
		t.Fatal("store returned a shared pointer, not a copy")
	}
}

func TestLocksSerializePerSession(t *testing.T) {
	locks := NewLocks()

	var mu sync.Mutex
	order := []int{}
	release := locks.Acquire("s1")

	done := make(chan struct{})
	go func() {
		unlock := locks.Acquire("s1")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		unlock()
		close(done)
	}()

	// A different session is not blocked.
	otherDone := make(chan struct{})
	go func() {
		unlock := locks.Acquire("s2")
		unlock()
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("independent session blocked")
	}

	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	release()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}
