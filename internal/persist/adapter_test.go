package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/elli-study/elli/internal/models"
	"github.com/elli-study/elli/internal/sheet"
)

// flakyStore fails writes while broken is set.
type flakyStore struct {
	sheet.Store
	mu     sync.Mutex
	broken bool
}

func (f *flakyStore) setBroken(b bool) {
	f.mu.Lock()
	f.broken = b
	f.mu.Unlock()
}

func (f *flakyStore) isBroken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken
}

func (f *flakyStore) WriteRow(ctx context.Context, h sheet.RowHandle, row []string) error {
	if f.isBroken() {
		return errors.New("store down")
	}
	return f.Store.WriteRow(ctx, h, row)
}

func (f *flakyStore) AppendLog(ctx context.Context, e sheet.LogEntry) error {
	if f.isBroken() {
		return errors.New("store down")
	}
	return f.Store.AppendLog(ctx, e)
}

func newSession(id string) *models.Session {
	return &models.Session{ID: id, Condition: models.ConditionChatbot}
}

func TestWritePartialClaimsOnce(t *testing.T) {
	store := sheet.NewMemoryStore()
	a := NewAdapter(store)
	ctx := context.Background()
	s := newSession("s1")

	if err := a.WritePartial(ctx, s, map[int]string{sheet.ColMood: "okay"}); err != nil {
		t.Fatal(err)
	}
	if s.Row != 1 {
		t.Fatalf("row = %d, want 1", s.Row)
	}
	if err := a.WritePartial(ctx, s, map[int]string{sheet.ColAge: "29"}); err != nil {
		t.Fatal(err)
	}
	if s.Row != 1 {
		t.Fatalf("second write moved the row to %d", s.Row)
	}

	row, err := store.ReadRow(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if row[sheet.ColCondition] != models.ConditionChatbot {
		t.Fatalf("condition marker = %q", row[sheet.ColCondition])
	}
	if row[sheet.ColMood] != "okay" || row[sheet.ColAge] != "29" {
		t.Fatalf("row = %v", row)
	}
}

func TestConcurrentSessionsGetDistinctRows(t *testing.T) {
	store := sheet.NewMemoryStore()
	a := NewAdapter(store)
	ctx := context.Background()

	const n = 12
	sessions := make([]*models.Session, n)
	var wg sync.WaitGroup
	for i := range sessions {
		sessions[i] = newSession(string(rune('a' + i)))
		wg.Add(1)
		go func(s *models.Session) {
			defer wg.Done()
			if err := a.WritePartial(ctx, s, map[int]string{sheet.ColMood: "hi"}); err != nil {
				t.Error(err)
			}
		}(sessions[i])
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, s := range sessions {
		if s.Row == 0 || seen[s.Row] {
			t.Fatalf("row %d claimed zero or twice", s.Row)
		}
		seen[s.Row] = true
	}
}

func TestMergeNeverOverwrites(t *testing.T) {
	store := sheet.NewMemoryStore()
	a := NewAdapter(store)
	ctx := context.Background()
	s := newSession("s1")

	if err := a.WritePartial(ctx, s, map[int]string{sheet.ColMood: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := a.WritePartial(ctx, s, map[int]string{sheet.ColMood: "second", sheet.ColAge: "30"}); err != nil {
		t.Fatal(err)
	}

	row, _ := store.ReadRow(ctx, sheet.RowHandle(s.Row))
	if row[sheet.ColMood] != "first" {
		t.Fatalf("mood = %q, first write must win", row[sheet.ColMood])
	}
	if row[sheet.ColAge] != "30" {
		t.Fatalf("age = %q, blank cell should accept the new value", row[sheet.ColAge])
	}
}

func TestQueuedWritesFlush(t *testing.T) {
	store := &flakyStore{Store: sheet.NewMemoryStore()}
	a := NewAdapter(store)
	ctx := context.Background()
	s := newSession("s1")

	store.setBroken(true)
	if err := a.WritePartial(ctx, s, map[int]string{sheet.ColMood: "queued"}); err == nil {
		t.Fatal("expected write error while the store is down")
	}
	if err := a.LogTurn(ctx, s.ID, models.Message{Speaker: models.SpeakerUser, Text: "hello", At: time.Now()}); err == nil {
		t.Fatal("expected log error while the store is down")
	}

	store.setBroken(false)
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	row, err := store.ReadRow(ctx, sheet.RowHandle(s.Row))
	if err != nil {
		t.Fatal(err)
	}
	if row[sheet.ColMood] != "queued" {
		t.Fatalf("queued cell not flushed: %v", row)
	}
	entries, _ := store.Log(ctx)
	if len(entries) != 1 || entries[0].Content != "hello" {
		t.Fatalf("queued log entry not flushed: %+v", entries)
	}
}

func TestWriteFullMapsSession(t *testing.T) {
	store := sheet.NewMemoryStore()
	a := NewAdapter(store)
	ctx := context.Background()

	s := newSession("s1")
	s.Demographics = models.Demographics{Name: "Alex", Age: 29, Gender: "female"}
	s.InitialMood = "a bit tired"
	s.PHQAnswers = []int{1, 1, 1, 1, 1, 1, 1, 1, 1}
	s.PHQTotal = 9
	s.GADAnswers = []int{0, 0, 0, 0, 0, 0, 0}
	s.Feedback = models.Feedback{Trust: 4, Comfort: 5, Empathy: 4, Reflection: "It was fine"}

	if err := a.WriteFull(ctx, s); err != nil {
		t.Fatal(err)
	}
	row, _ := store.ReadRow(ctx, sheet.RowHandle(s.Row))

	want := map[int]string{
		sheet.ColCondition:  models.ConditionChatbot,
		sheet.ColAge:        "29",
		sheet.ColGender:     "female",
		sheet.ColMood:       "a bit tired",
		sheet.ColPHQTotal:   "9",
		sheet.ColGADTotal:   "0",
		sheet.ColTrust:      "4",
		sheet.ColComfort:    "5",
		sheet.ColEmpathy:    "4",
		sheet.ColReflection: "It was fine",
	}
	for c, v := range want {
		if row[c] != v {
			t.Errorf("column %d = %q, want %q", c, row[c], v)
		}
	}
	for i := 0; i < 9; i++ {
		if row[sheet.ColPHQFirst+i] != "1" {
			t.Errorf("depression item %d = %q", i+1, row[sheet.ColPHQFirst+i])
		}
	}
	for i := 0; i < 7; i++ {
		if row[sheet.ColGADFirst+i] != "0" {
			t.Errorf("anxiety item %d = %q", i+1, row[sheet.ColGADFirst+i])
		}
	}
}

func TestWriteFullMoodExchangeFromTranscript(t *testing.T) {
	store := sheet.NewMemoryStore()
	a := NewAdapter(store)
	ctx := context.Background()

	s := newSession("s1")
	s.InitialMood = "a bit tired"
	at := time.Now()
	s.Append(models.SpeakerBot, "How are you feeling today?", at)
	s.Append(models.SpeakerUser, "a bit tired", at)
	s.Append(models.SpeakerBot, "Thank you for sharing that.", at)

	if err := a.WriteFull(ctx, s); err != nil {
		t.Fatal(err)
	}
	row, _ := store.ReadRow(ctx, sheet.RowHandle(s.Row))
	want := "User: a bit tired\nElli: Thank you for sharing that."
	if row[sheet.ColMood] != want {
		t.Fatalf("mood column = %q, want %q", row[sheet.ColMood], want)
	}
}
