package sheet

import (
	"context"
	"sync"
)

// MemoryStore keeps the sheet in process memory. It is the default backend
// for tests and single-process runs.
type MemoryStore struct {
	mu   sync.Mutex
	rows [][]string
	log  []LogEntry
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) ClaimRow(_ context.Context, marker string) (RowHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if Blank(row) {
			row[ColCondition] = marker
			return RowHandle(i + 1), nil
		}
	}
	row := NewRow()
	row[ColCondition] = marker
	s.rows = append(s.rows, row)
	return RowHandle(len(s.rows)), nil
}

func (s *MemoryStore) ReadRow(_ context.Context, h RowHandle) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < 1 || int(h) > len(s.rows) {
		return nil, ErrRowOutOfRange
	}
	out := make([]string, NumCols)
	copy(out, s.rows[h-1])
	return out, nil
}

func (s *MemoryStore) WriteRow(_ context.Context, h RowHandle, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < 1 || int(h) > len(s.rows) {
		return ErrRowOutOfRange
	}
	stored := NewRow()
	copy(stored, row)
	s.rows[h-1] = stored
	return nil
}

func (s *MemoryStore) Rows(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, row := range s.rows {
		cp := make([]string, NumCols)
		copy(cp, row)
		out[i] = cp
	}
	return out, nil
}

func (s *MemoryStore) AppendLog(_ context.Context, e LogEntry) error {
	s.mu.Lock()
	s.log = append(s.log, e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Log(_ context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out, nil
}
