package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/token"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

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

type resolverFunc func(ctx context.Context, id uint64) (*model.User, error)

func (f resolverFunc) Resolve(ctx context.Context, id uint64) (*model.User, error) { return f(ctx, id) }

type brokenStore struct{ revocation.Store }

func (brokenStore) IsRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func activeUsers(ids ...uint64) resolverFunc {
	return func(_ context.Context, id uint64) (*model.User, error) {
		for _, known := range ids {
			if known == id {
				return &model.User{ID: id, Username: "u", IsActive: true, Roles: []string{model.RoleMember}}, nil
			}
		}
		return nil, nil
	}
}

type env struct {
	clock *clock
	codec *token.Codec
	store *revocation.Memory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	codec, err := token.NewCodec("authenticator-test-secret-0123456789", "HS256", token.WithClock(clk.Now))
	require.NoError(t, err)
	return &env{clock: clk, codec: codec, store: revocation.NewMemory(clk.Now)}
}

func (e *env) issue(t *testing.T, subject string, kind token.Kind, ttl time.Duration) string {
	t.Helper()
	tok, err := e.codec.Issue(subject, kind, ttl)
	require.NoError(t, err)
	return tok.Raw
}

func TestAuthenticator_Success(t *testing.T) {
	e := newEnv(t)
	a := NewAuthenticator(e.codec, e.store, activeUsers(42), true)
	raw := e.issue(t, "42", token.KindAccess, time.Minute)

	for _, header := range []string{"Bearer " + raw, "bearer " + raw, "BEARER  " + raw} {
		p, err := a.Authenticate(context.Background(), header)
		require.NoError(t, err, header)
		require.NotNil(t, p)
		assert.Equal(t, uint64(42), p.ID)
	}
}

func TestAuthenticator_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := NewAuthenticator(e.codec, e.store, activeUsers(42), true)

	access := e.issue(t, "42", token.KindAccess, time.Minute)
	refresh := e.issue(t, "42", token.KindRefresh, time.Hour)
	unknown := e.issue(t, "7", token.KindAccess, time.Minute)
	named := e.issue(t, "svc", token.KindAccess, time.Minute)

	other, err := token.NewCodec("another-secret-another-secret-0123", "HS256", token.WithClock(e.clock.Now))
	require.NoError(t, err)
	forged, err := other.Issue("42", token.KindAccess, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		kind   model.AuthErrorKind
	}{
		{"missing header", "", model.NoCredentials},
		{"basic scheme", "Basic dXNlcjpwYXNz", model.NoCredentials},
		{"empty bearer", "Bearer ", model.NoCredentials},
		{"malformed", "Bearer abc.def", model.InvalidToken},
		{"bad signature", "Bearer " + forged.Raw, model.InvalidToken},
		{"refresh token", "Bearer " + refresh, model.InvalidToken},
		{"unknown user", "Bearer " + unknown, model.InvalidToken},
		{"non numeric subject", "Bearer " + named, model.InvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := a.Authenticate(ctx, tt.header)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, model.IsAuthKind(err, tt.kind), "got %v", err)
		})
	}

	t.Run("expired is distinguishable", func(t *testing.T) {
		e.clock.Advance(2 * time.Minute)
		_, err := a.Authenticate(ctx, "Bearer "+access)
		assert.True(t, model.IsAuthKind(err, model.TokenExpired))
		assert.ErrorIs(t, err, token.ErrExpired)
	})
}

func TestAuthenticator_OptionalMode(t *testing.T) {
	e := newEnv(t)
	a := NewAuthenticator(e.codec, e.store, activeUsers(42), true).WithAutoError(false)

	p, err := a.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, p)

	// A present but bad token is still rejected.
	_, err = a.Authenticate(context.Background(), "Bearer junk")
	assert.True(t, model.IsAuthKind(err, model.InvalidToken))
}

func TestAuthenticator_RevokedAfterLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := NewAuthenticator(e.codec, e.store, activeUsers(42), true)

	old := e.issue(t, "42", token.KindAccess, time.Hour)
	e.clock.Advance(time.Second)
	require.NoError(t, e.store.Revoke(ctx, revocation.SubjectID("42"), e.clock.Now().Add(7*24*time.Hour)))

	_, err := a.Authenticate(ctx, "Bearer "+old)
	require.True(t, model.IsAuthKind(err, model.InvalidToken))
	assert.ErrorIs(t, err, errRevoked)

	e.clock.Advance(time.Second)
	fresh := e.issue(t, "42", token.KindAccess, time.Hour)
	p, err := a.Authenticate(ctx, "Bearer "+fresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.ID)
}

func TestAuthenticator_RevokedByTokenID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := NewAuthenticator(e.codec, e.store, activeUsers(42), true)

	tok, err := e.codec.Issue("42", token.KindAccess, time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.store.Revoke(ctx, revocation.TokenID(tok.ID), tok.ExpiresAt))

	_, err = a.Authenticate(ctx, "Bearer "+tok.Raw)
	assert.True(t, model.IsAuthKind(err, model.InvalidToken))
}

func TestAuthenticator_DeactivatedMidSession(t *testing.T) {
	e := newEnv(t)
	var mu sync.Mutex
	active := true
	users := resolverFunc(func(_ context.Context, id uint64) (*model.User, error) {
		mu.Lock()
		defer mu.Unlock()
		if !active {
			return nil, nil
		}
		return &model.User{ID: id, IsActive: true}, nil
	})
	a := NewAuthenticator(e.codec, e.store, users, true)
	header := "Bearer " + e.issue(t, "42", token.KindAccess, time.Hour)

	_, err := a.Authenticate(context.Background(), header)
	require.NoError(t, err)

	mu.Lock()
	active = false
	mu.Unlock()

	_, err = a.Authenticate(context.Background(), header)
	assert.True(t, model.IsAuthKind(err, model.InvalidToken))
}

func TestAuthenticator_BackingStoreOutages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	header := "Bearer " + e.issue(t, "42", token.KindAccess, time.Hour)

	a := NewAuthenticator(e.codec, brokenStore{e.store}, activeUsers(42), true)
	_, err := a.Authenticate(ctx, header)
	require.ErrorIs(t, err, model.ErrUnavailable)
	var ae *model.AuthError
	assert.False(t, errors.As(err, &ae))

	failing := resolverFunc(func(context.Context, uint64) (*model.User, error) {
		return nil, model.ErrUnavailable
	})
	a = NewAuthenticator(e.codec, e.store, failing, true)
	_, err = a.Authenticate(ctx, header)
	require.ErrorIs(t, err, model.ErrUnavailable)
	assert.False(t, errors.As(err, &ae))
}

func TestBearerToken(t *testing.T) {
	raw, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, ok = BearerToken("Token abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}
