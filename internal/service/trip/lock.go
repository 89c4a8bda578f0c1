package trip

import "sync"

// lockMap hands out one mutex per trip id. Entries are dropped when unused.
type lockMap struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[int64]*lockEntry)}
}

// Lock blocks until the lock of id is held and returns its release func.
func (m *lockMap) Lock(id int64) func() {
	m.mu.Lock()
	e, ok := m.locks[id]
	if !ok {
		e = &lockEntry{}
		m.locks[id] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

func (m *lockMap) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
