package sheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCSV(t *testing.T) *CSVStore {
	t.Helper()
	s, err := NewCSVStore(filepath.Join(t.TempDir(), "sheet.csv"))
	if err != nil {
		t.Fatalf("new csv store: %v", err)
	}
	return s
}

func TestCSVClaimAndReadBack(t *testing.T) {
	s := newTestCSV(t)
	ctx := context.Background()

	h, err := s.ClaimRow(ctx, "chatbot")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if h != 1 {
		t.Fatalf("claim got row %d, want 1", h)
	}
	row, err := s.ReadRow(ctx, h)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(row) != NumCols {
		t.Fatalf("row width %d, want %d", len(row), NumCols)
	}
	if row[ColCondition] != "chatbot" {
		t.Fatalf("marker = %q", row[ColCondition])
	}
}

func TestCSVWritePersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.csv")
	ctx := context.Background()

	s1, err := NewCSVStore(path)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := s1.ClaimRow(ctx, "chatbot")
	row := NewRow()
	row[ColCondition] = "chatbot"
	row[ColAge] = "29"
	row[ColGender] = "female"
	if err := s1.WriteRow(ctx, h, row); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A second store over the same file sees the data (server + CLI case).
	s2, err := NewCSVStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.ReadRow(ctx, h)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[ColAge] != "29" || got[ColGender] != "female" {
		t.Fatalf("round trip lost cells: %v", got[:4])
	}
}

func TestCSVShortRowsWidened(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.csv")
	// Hand-written sheet with a short row, as a spreadsheet edit might leave.
	if err := os.WriteFile(path, []byte("static,44\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewCSVStore(path)
	if err != nil {
		t.Fatal(err)
	}
	row, err := s.ReadRow(context.Background(), 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(row) != NumCols {
		t.Fatalf("row width %d, want %d", len(row), NumCols)
	}
	if row[ColCondition] != "static" || row[ColAge] != "44" {
		t.Fatalf("unexpected row: %v", row[:3])
	}
}

func TestCSVTurnLog(t *testing.T) {
	s := newTestCSV(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.AppendLog(ctx, LogEntry{SessionID: "abc", Role: "user", Content: "hello, Elli", At: at}); err != nil {
		t.Fatalf("append log: %v", err)
	}
	log, err := s.Log(ctx)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("log length %d", len(log))
	}
	if log[0].Content != "hello, Elli" || !log[0].At.Equal(at) {
		t.Fatalf("unexpected entry: %+v", log[0])
	}
}
