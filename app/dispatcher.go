package app

import (
	"sync"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

// Dispatcher is the host facing entry point of the engine. It owns the
// state store and serializes all transitions, so handlers never observe
// concurrent access to the KVStore.
//
// Check validates a transaction against current state without persisting
// anything. Deliver executes it and persists the result only when the
// handler succeeds.
type Dispatcher struct {
	mu      sync.Mutex
	db      bazaar.KVStore
	handler bazaar.Handler
}

// NewDispatcher returns a dispatcher executing transitions of the given
// handler, usually a Router, against the given store.
func NewDispatcher(db bazaar.KVStore, handler bazaar.Handler) *Dispatcher {
	return &Dispatcher{
		db:      db,
		handler: handler,
	}
}

// Check validates the transaction against the current state. No state
// change is persisted, regardless of the outcome.
func (d *Dispatcher) Check(ctx bazaar.Context, tx bazaar.Tx) (res *bazaar.CheckResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer errors.Recover(&err)

	cache := newCacheStore(d.db)
	return d.handler.Check(ctx, cache, tx)
}

// Deliver executes the transaction. All writes of the handler are
// buffered and flushed only on success; a failed transition leaves the
// state untouched.
func (d *Dispatcher) Deliver(ctx bazaar.Context, tx bazaar.Tx) (res *bazaar.DeliverResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer errors.Recover(&err)

	cache := newCacheStore(d.db)
	res, err = d.handler.Deliver(ctx, cache, tx)
	if err != nil {
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "cannot persist state")
	}
	return res, nil
}

// Store exposes the dispatcher state for read only access, ie. queries.
func (d *Dispatcher) Store() bazaar.ReadOnlyKVStore {
	return d.db
}
