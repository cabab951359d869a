package session

import "sync"

// InFlight tracks sessions with a describe request in progress, so a second
// click cannot start another one.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// TryAcquire marks id busy. It returns false if it already was.
func (f *InFlight) TryAcquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[id]; busy {
		return false
	}
	f.active[id] = struct{}{}
	return true
}

// Release marks id idle again.
func (f *InFlight) Release(id string) {
	f.mu.Lock()
	delete(f.active, id)
	f.mu.Unlock()
}
