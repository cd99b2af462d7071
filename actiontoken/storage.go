package actiontoken

import (
	"sync"
	"time"
)

// MemoryStorage is the default consumption ledger. Entries are retained for
// the token expiration window and pruned lazily on access.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStorage creates an in-memory consumption ledger.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// Consume implements Storage.
func (m *MemoryStorage) Consume(token string, retention time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	if _, seen := m.entries[token]; seen {
		return false, nil
	}

	if retention <= 0 {
		retention = DefaultExpiration
	}
	m.entries[token] = now.Add(retention)

	return true, nil
}

func (m *MemoryStorage) prune(now time.Time) {
	for token, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, token)
		}
	}
}
