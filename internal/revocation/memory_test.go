package revocation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemory_SubjectRevocationCoversOlderTokensOnly(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(clk.Now)

	issuedBefore := clk.Now().Add(-time.Minute)
	require.NoError(t, m.Revoke(ctx, SubjectID("42"), clk.Now().Add(time.Hour)))

	revoked, err := m.IsRevoked(ctx, SubjectID("42"), issuedBefore)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = m.IsRevoked(ctx, SubjectID("42"), clk.Now())
	require.NoError(t, err)
	assert.True(t, revoked, "token issued at the revocation instant is covered")

	clk.Advance(time.Nanosecond)
	revoked, err = m.IsRevoked(ctx, SubjectID("42"), clk.Now())
	require.NoError(t, err)
	assert.False(t, revoked, "token issued after logout stays valid")

	revoked, err = m.IsRevoked(ctx, SubjectID("43"), issuedBefore)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemory_ExpiredRecordsIgnoredAndPruned(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(clk.Now)

	issued := clk.Now().Add(-time.Second)
	require.NoError(t, m.Revoke(ctx, TokenID("a"), clk.Now().Add(time.Minute)))
	require.NoError(t, m.Revoke(ctx, TokenID("b"), clk.Now().Add(time.Hour)))

	clk.Advance(2 * time.Minute)

	revoked, err := m.IsRevoked(ctx, TokenID("a"), issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := m.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Len())

	revoked, err = m.IsRevoked(ctx, TokenID("b"), issued)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemory_RevokeKeepsLongestUntil(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(clk.Now)

	require.NoError(t, m.Revoke(ctx, SubjectID("1"), clk.Now().Add(time.Hour)))
	require.NoError(t, m.Revoke(ctx, SubjectID("1"), clk.Now().Add(time.Minute)))

	clk.Advance(30 * time.Minute)
	revoked, err := m.IsRevoked(ctx, SubjectID("1"), clk.Now().Add(-40*time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemory_RejectsEmptyID(t *testing.T) {
	m := NewMemory(nil)
	require.Error(t, m.Revoke(context.Background(), "", time.Now().Add(time.Hour)))
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Revoke(ctx, SubjectID("x"), time.Now().Add(time.Hour))
		}()
		go func() {
			defer wg.Done()
			_, _ = m.IsRevoked(ctx, SubjectID("x"), time.Now())
		}()
	}
	wg.Wait()

	revoked, err := m.IsRevoked(ctx, SubjectID("x"), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestIsTokenRevoked_ChecksTokenThenSubject(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(clk.Now)
	issued := clk.Now()
	clk.Advance(time.Second)

	revoked, err := IsTokenRevoked(ctx, m, "42", "abc", issued)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, TokenID("abc"), clk.Now().Add(time.Hour)))
	revoked, err = IsTokenRevoked(ctx, m, "42", "abc", issued)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenRevoked(ctx, m, "42", "def", issued)
	require.NoError(t, err)
	assert.False(t, revoked, "sibling token of the same subject stays valid")

	require.NoError(t, m.Revoke(ctx, SubjectID("42"), clk.Now().Add(time.Hour)))
	revoked, err = IsTokenRevoked(ctx, m, "42", "def", issued)
	require.NoError(t, err)
	assert.True(t, revoked)
}
