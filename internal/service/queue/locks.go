package queue

import "sync"

// businessLocks serializes lifecycle operations per business while letting
// different businesses proceed in parallel. Mutexes are never reclaimed; the
// set is bounded by the number of businesses.
type businessLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newBusinessLocks() *businessLocks {
	return &businessLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the business mutex and returns its release func.
func (l *businessLocks) Lock(businessID string) func() {
	l.mu.Lock()
	m, ok := l.locks[businessID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[businessID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
