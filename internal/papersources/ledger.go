package papersources

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
)

// CacheKey identifies a request by its URL and sorted query parameters.
func CacheKey(rawURL string, params url.Values) string {
	if len(params) == 0 {
		return rawURL
	}
	return rawURL + "?" + params.Encode()
}

const defaultLedgerHistory = 1024

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// MemoryStore is an in-process CallLedger and ResponseCache. It keeps a
// bounded call history and evicts expired cache entries lazily.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	calls   []domain.RequestLog
	history int
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryStore creates a store keeping at most history ledger entries.
// A non-positive history uses the default.
func NewMemoryStore(history int) *MemoryStore {
	if history <= 0 {
		history = defaultLedgerHistory
	}
	return &MemoryStore{
		history: history,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// LastCall returns a copy of the most recent entry, or nil.
func (m *MemoryStore) LastCall(_ context.Context) (*domain.RequestLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.calls) == 0 {
		return nil, nil
	}
	last := m.calls[len(m.calls)-1]
	return &last, nil
}

// RecordCall appends entry, assigning an ID when missing.
func (m *MemoryStore) RecordCall(_ context.Context, entry *domain.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.calls = append(m.calls, *entry)
	if len(m.calls) > m.history {
		m.calls = m.calls[len(m.calls)-m.history:]
	}
	return nil
}

// Calls returns a snapshot of the recorded entries, oldest first.
func (m *MemoryStore) Calls() []domain.RequestLog {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RequestLog, len(m.calls))
	copy(out, m.calls)
	return out
}

// Get returns the cached body for key if present and not expired.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.body, true, nil
}

// Set stores body under key. A zero ttl never expires.
func (m *MemoryStore) Set(_ context.Context, key string, body []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.entries[key] = cacheEntry{body: append([]byte(nil), body...), expires: expires}
	return nil
}
