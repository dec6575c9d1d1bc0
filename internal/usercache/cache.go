// Package usercache resolves token subjects to user records through a
// TTL cache that is evicted whenever the underlying record changes.
package usercache

import (
	"context"
	"slices"
	"time"

	"github.com/iliyamo/sessionauth/internal/model"
)

// Cache stores user snapshots by key.  Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*model.User, error)
	Set(ctx context.Context, key string, u *model.User, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}
