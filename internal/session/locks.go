package session

import "sync"

// Locks hands out one mutex per session ID so turns against the same
// session run strictly one at a time, while different sessions proceed in
// parallel. Entries are never reaped; the study's session count is small.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the session's lock is held and returns the release
// func.
func (l *Locks) Acquire(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
