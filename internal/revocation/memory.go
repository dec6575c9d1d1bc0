package revocation

import (
	"context"
	"errors"
	"sync"
	"time"
)

type record struct {
	revokedAt time.Time
	until     time.Time
}

// Memory is an in-process Store.  Suitable for tests and single-instance
// deployments; records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records map[string]record
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.  A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{records: make(map[string]record), now: now}
}

func (m *Memory) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("revocation id cannot be empty")
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	// A later revocation always moves the cutoff forward; keep the longest until.
	if prev, ok := m.records[id]; ok && prev.until.After(until) {
		until = prev.until
	}
	m.records[id] = record{revokedAt: now, until: until}
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, id string, issuedAt time.Time) (bool, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()

	if !ok || !m.now().Before(rec.until) {
		return false, nil
	}
	return covers(rec.revokedAt, issuedAt), nil
}

func (m *Memory) Prune(_ context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.records {
		if !now.Before(rec.until) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
