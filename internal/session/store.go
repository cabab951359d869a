package session

import (
	"context"
	"sync"
	"time"
)

// Store loads and saves session state by id.
type Store interface {
	// Load returns the stored session or a fresh one when id is unknown or expired.
	Load(ctx context.Context, id string) (*Session, error)
	// Save stores s and extends its lifetime.
	Save(ctx context.Context, s *Session) error
}

type memoryEntry struct {
	session *Session
	expires time.Time
}

// MemoryStore keeps sessions in process memory with an idle expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store; sessions idle for ttl are dropped.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expires) {
		return New(id), nil
	}
	// callers mutate the returned value; hand out a copy
	copied := *entry.session
	return &copied, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	now := m.now()
	copied := *s

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[s.ID] = memoryEntry{session: &copied, expires: now.Add(m.ttl)}
	for id, entry := range m.entries {
		if now.After(entry.expires) {
			delete(m.entries, id)
		}
	}
	return nil
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*MemoryStore)(nil)
