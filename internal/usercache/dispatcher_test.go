package usercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sessionauth/internal/model"
)

type recordingPublisher struct {
	ids []uint64
	err error
}

func (p *recordingPublisher) PublishUserChanged(_ context.Context, id uint64) error {
	p.ids = append(p.ids, id)
	return p.err
}

func TestDispatcher_RoutesOnlyMatchingIDs(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(nil)
	principals := NewResolver("auth:user", time.Minute, newFakeStore(activeUser(1), activeUser(2)), cache, discard())
	profiles := NewResolver("profile", time.Minute, newFakeStore(activeUser(1), activeUser(2)), cache, discard())

	d := NewDispatcher(nil, discard())
	d.Register(principals)
	d.Register(profiles)

	for _, r := range []*Resolver{principals, profiles} {
		for _, id := range []uint64{1, 2} {
			_, err := r.Resolve(ctx, id)
			require.NoError(t, err)
		}
	}
	require.Equal(t, 4, cache.Len())

	require.NoError(t, d.UserChanged(ctx, 1))

	assert.Equal(t, 2, cache.Len())
	for _, key := range []string{"auth:user:2", "profile:2"} {
		u, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, u, key)
	}
	for _, key := range []string{"auth:user:1", "profile:1"} {
		u, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, u, key)
	}
}

func TestDispatcher_PublishesAfterLocalEviction(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, discard())
	d.Register(newResolver(newFakeStore(), NewMemory(nil)))

	require.NoError(t, d.UserChanged(ctx, 7), "notification failures are not fatal")
	assert.Equal(t, []uint64{7}, pub.ids)
}

func TestDispatcher_EvictFailureStopsNotification(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, discard())
	d.Register(newResolver(newFakeStore(), failingCache{}))

	require.Error(t, d.UserChanged(ctx, 7))
	assert.Empty(t, pub.ids)
}

func TestDispatcher_EvictDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, discard())
	d.Register(newResolver(newFakeStore(), NewMemory(nil)))

	require.NoError(t, d.Evict(context.Background(), 3))
	assert.Empty(t, pub.ids)
}

var _ Loader = LoaderFunc(func(context.Context, uint64) (model.User, error) { return model.User{}, nil })
