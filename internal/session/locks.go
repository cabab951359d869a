package session

import "sync"

// Locks serializes load-modify-save cycles on the same session id.
type Locks struct {
	mu   sync.Mutex
	held map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{held: make(map[string]*sessionLock)}
}

// Lock blocks until id is free and returns the function that frees it.
// Entries are dropped once nobody holds or waits for them.
func (l *Locks) Lock(id string) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.held[id]
	if !ok {
		lock = &sessionLock{}
		l.held[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
