package reconciler

import "sync"

// ownerLocks serializes reconciliation per owner. Different owners proceed
// in parallel; two calls for the same owner never interleave between the
// candidate lookup and the store mutation.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for an owner, creating it on first use. Lock
// entries are never removed: the set of owners is bounded by the user base
// and a mutex is tiny.
func (l *ownerLocks) get(owner string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		l.locks[owner] = m
	}
	return m
}
