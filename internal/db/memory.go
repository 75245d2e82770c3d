package db

import (
	"sync"

	"github.com/elli-study/elli/internal/services"
)

// MemoryStore is the non-durable counterpart to SQLiteStore, used for
// local runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	researchers map[string]services.Researcher // by email
	assignments map[string]services.Assignment // by token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		researchers: make(map[string]services.Researcher),
		assignments: make(map[string]services.Assignment),
	}
}

func (m *MemoryStore) FindByEmail(email string) (*services.Researcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.researchers[email]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *MemoryStore) Add(r *services.Researcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.researchers[r.Email] = *r
	return nil
}

func (m *MemoryStore) FindByToken(token string) (*services.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.assignments[token]; ok {
		return &a, nil
	}
	return nil, nil
}

func (m *MemoryStore) AddAssignment(a *services.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.Token] = *a
	return nil
}

func (m *MemoryStore) Assignments() services.AssignmentStore {
	return memAssignmentView{m}
}

type memAssignmentView struct{ m *MemoryStore }

func (v memAssignmentView) FindByToken(token string) (*services.Assignment, error) {
	return v.m.FindByToken(token)
}

func (v memAssignmentView) Add(a *services.Assignment) error { return v.m.AddAssignment(a) }
