package usercache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Publisher forwards user change notifications to other instances.
type Publisher interface {
	PublishUserChanged(ctx context.Context, id uint64) error
}

// Dispatcher routes user change notifications to every registered
// resolver.  It is registered as the user store's change listener, so
// eviction completes before the triggering write returns.
type Dispatcher struct {
	mu        sync.RWMutex
	resolvers []*Resolver
	publisher Publisher
	log       *slog.Logger
}

// NewDispatcher creates a dispatcher.  publisher may be nil.
func NewDispatcher(publisher Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{publisher: publisher, log: log}
}

// Register adds a resolver to the routing table.
func (d *Dispatcher) Register(r *Resolver) {
	d.mu.Lock()
	d.resolvers = append(d.resolvers, r)
	d.mu.Unlock()
}

// Evict invalidates id in every registered resolver of this process.
func (d *Dispatcher) Evict(ctx context.Context, id uint64) error {
	d.mu.RLock()
	resolvers := d.resolvers
	d.mu.RUnlock()

	var errs []error
	for _, r := range resolvers {
		if err := r.Invalidate(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UserChanged evicts id locally and then notifies other instances.  Local
// eviction failures are returned; a failed notification is only logged
// because the local write and eviction already happened.
func (d *Dispatcher) UserChanged(ctx context.Context, id uint64) error {
	if err := d.Evict(ctx, id); err != nil {
		return err
	}
	if d.publisher != nil {
		if err := d.publisher.PublishUserChanged(ctx, id); err != nil {
			d.log.Warn("user change notification failed", "user_id", id, "error", err)
		}
	}
	return nil
}
