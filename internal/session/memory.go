package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/elli-study/elli/internal/models"
)

// MemoryStore keeps sessions in a map. Values are stored as copies so a
// caller mutating a session between Put calls cannot corrupt the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s)
}

func (m *MemoryStore) Put(_ context.Context, s *models.Session) error {
	cp, err := clone(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = cp
	m.mu.Unlock()
	return nil
}

// clone round-trips through JSON, the same shape the redis store persists.
func clone(s *models.Session) (*models.Session, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out models.Session
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
