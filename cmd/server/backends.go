package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sessionauth/internal/config"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/usercache"
)

var errNoRedis = errors.New("backend requires redis")

func newRevocationStore(backend string, db *sql.DB, rdb redis.Cmdable) (revocation.Store, error) {
	switch backend {
	case config.RevocationMemory:
		return revocation.NewMemory(nil), nil
	case config.RevocationRedis:
		if rdb == nil {
			return nil, fmt.Errorf("revocation: %w", errNoRedis)
		}
		return revocation.NewRedis(rdb, revocation.DefaultRedisPrefix, nil), nil
	case config.RevocationMySQL:
		return revocation.NewMySQL(db, nil), nil
	}
	return nil, fmt.Errorf("unknown revocation backend %q", backend)
}

func newUserCache(backend string, rdb redis.Cmdable) (usercache.Cache, error) {
	switch backend {
	case config.CacheMemory:
		return usercache.NewMemory(nil), nil
	case config.CacheDistributed:
		if rdb == nil {
			return nil, fmt.Errorf("user cache: %w", errNoRedis)
		}
		return usercache.NewRedis(rdb), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}
