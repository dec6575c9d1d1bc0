package usercache

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/sessionauth/internal/model"
)

type entry struct {
	user      *model.User
	expiresAt time.Time
}

// Memory is a process-local Cache.  Coherence is only guaranteed within
// the process; run several instances with the Redis cache or with
// invalidation fan-out enabled.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty memory cache.  A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]entry), now: now}
}

func (m *Memory) Get(_ context.Context, key string) (*model.User, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		return nil, nil
	}
	return cloneUser(e.user), nil
}

func (m *Memory) Set(_ context.Context, key string, u *model.User, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{user: cloneUser(u), expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
