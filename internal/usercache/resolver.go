package usercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/sessionauth/internal/metrics"
	"github.com/iliyamo/sessionauth/internal/model"
)

// Loader reads the current user record.  It returns model.ErrNotFound
// for unknown ids.
type Loader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id uint64) (model.User, error)

func (f LoaderFunc) GetByID(ctx context.Context, id uint64) (model.User, error) { return f(ctx, id) }

// Resolver maps subject ids to active users, caching found users for ttl
// under "<prefix>:<id>".
type Resolver struct {
	prefix string
	ttl    time.Duration
	loader Loader
	cache  Cache
	log    *slog.Logger

	flights singleflight.Group

	// gens and pending only hold ids with a resolve in progress.
	mu      sync.Mutex
	gens    map[uint64]uint64
	pending map[uint64]int
}

// NewResolver creates a resolver.  Resolvers sharing a cache must use
// distinct prefixes.
func NewResolver(prefix string, ttl time.Duration, loader Loader, cache Cache, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		prefix:  prefix,
		ttl:     ttl,
		loader:  loader,
		cache:   cache,
		log:     log,
		gens:    make(map[uint64]uint64),
		pending: make(map[uint64]int),
	}
}

// Prefix returns the key prefix of this resolver.
func (r *Resolver) Prefix() string { return r.prefix }

func (r *Resolver) key(id uint64) string {
	return r.prefix + ":" + strconv.FormatUint(id, 10)
}

func (r *Resolver) generation(id uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[id]
}

// begin marks a resolve of id as in progress and returns its generation.
func (r *Resolver) begin(id uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id]++
	return r.gens[id]
}

func (r *Resolver) end(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id]--
	if r.pending[id] <= 0 {
		delete(r.pending, id)
		delete(r.gens, id)
	}
}

// Resolve returns the active user for id, or nil when the user does not
// exist or is inactive.  A loader failure is reported as
// model.ErrUnavailable and is not retried.
func (r *Resolver) Resolve(ctx context.Context, id uint64) (*model.User, error) {
	key := r.key(id)

	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("user cache read failed", "key", key, "error", err)
	} else if cached != nil && cached.IsActive {
		metrics.RecordCacheLookup(r.prefix, true)
		return cached, nil
	}
	metrics.RecordCacheLookup(r.prefix, false)

	gen := r.begin(id)
	defer r.end(id)
	// The generation is part of the flight key so a resolve issued after an
	// invalidation never joins a load that started before it.
	v, err, _ := r.flights.Do(key+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return r.load(ctx, id, key, gen)
	})
	if err != nil {
		return nil, err
	}
	u, _ := v.(*model.User)
	return cloneUser(u), nil
}

func (r *Resolver) load(ctx context.Context, id uint64, key string, gen uint64) (*model.User, error) {
	u, err := r.loader.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load user %d: %v", model.ErrUnavailable, id, err)
	}
	if !u.IsActive {
		return nil, nil
	}

	if r.generation(id) != gen {
		// Invalidated while loading: the row we read may predate the write.
		return &u, nil
	}
	if err := r.cache.Set(ctx, key, &u, r.ttl); err != nil {
		r.log.Warn("user cache write failed", "key", key, "error", err)
		return &u, nil
	}
	if r.generation(id) != gen {
		// Invalidated while the write was in flight: take the fill back.
		if err := r.cache.Delete(ctx, key); err != nil {
			r.log.Warn("user cache rollback failed", "key", key, "error", err)
		}
	}
	return &u, nil
}

// Invalidate evicts the cached entry for id.  Only this resolver's key is
// touched.
func (r *Resolver) Invalidate(ctx context.Context, id uint64) error {
	r.mu.Lock()
	if r.pending[id] > 0 {
		r.gens[id]++
	}
	r.mu.Unlock()

	key := r.key(id)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("evict %s: %w", key, err)
	}
	metrics.RecordEviction(r.prefix)
	r.log.Debug("user cache entry evicted", "key", key)
	return nil
}
