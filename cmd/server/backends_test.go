package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sessionauth/internal/config"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/usercache"
)

func TestNewRevocationStore(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	defer rdb.Close()

	s, err := newRevocationStore(config.RevocationMemory, db, nil)
	require.NoError(t, err)
	assert.IsType(t, &revocation.Memory{}, s)

	s, err = newRevocationStore(config.RevocationRedis, db, rdb)
	require.NoError(t, err)
	assert.IsType(t, &revocation.Redis{}, s)

	s, err = newRevocationStore(config.RevocationMySQL, db, nil)
	require.NoError(t, err)
	assert.IsType(t, &revocation.MySQL{}, s)

	_, err = newRevocationStore(config.RevocationRedis, db, nil)
	require.ErrorIs(t, err, errNoRedis)

	_, err = newRevocationStore("etcd", db, nil)
	require.Error(t, err)
}

func TestNewUserCache(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()})
	defer rdb.Close()

	c, err := newUserCache(config.CacheMemory, nil)
	require.NoError(t, err)
	assert.IsType(t, &usercache.Memory{}, c)

	c, err = newUserCache(config.CacheDistributed, rdb)
	require.NoError(t, err)
	assert.IsType(t, &usercache.Redis{}, c)

	_, err = newUserCache(config.CacheDistributed, nil)
	require.ErrorIs(t, err, errNoRedis)
}
