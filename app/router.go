// Package app wires the engine together: a router that maps message
// paths to extension handlers and a dispatcher that serializes state
// transitions against a single KVStore.
package app

import (
	"fmt"
	"regexp"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

// isPath validates routing paths. A path is expected to be formatted as
// "extension/action", lowercase, underscore separated words.
var isPath = regexp.MustCompile(`^[a-z]+/[a-z_]+$`).MatchString

// Router maps message paths to handlers.
type Router struct {
	handlers map[string]bazaar.Handler
}

var _ bazaar.Registry = (*Router)(nil)
var _ bazaar.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]bazaar.Handler),
	}
}

// Handle implements bazaar.Registry interface. Registering different
// message types with the same path, or the same message type twice is
// a programming error and panics.
func (r *Router) Handle(m bazaar.Msg, h bazaar.Handler) {
	path := m.Path()
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path %q", path))
	}
	if _, ok := r.handlers[path]; ok {
		panic(fmt.Sprintf("re-registering route %q", path))
	}
	r.handlers[path] = h
}

// Handler returns the registered Handler for this path. If no path is
// found, it returns a noSuchPathHandler that errors on every call.
func (r *Router) Handler(path string) bazaar.Handler {
	h, ok := r.handlers[path]
	if !ok {
		return noSuchPathHandler{path: path}
	}
	return h
}

// Check dispatches the transaction to the handler registered for the
// path of its message.
func (r *Router) Check(ctx bazaar.Context, store bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	return r.Handler(bazaar.GetPath(tx)).Check(ctx, store, tx)
}

// Deliver dispatches the transaction to the handler registered for the
// path of its message.
func (r *Router) Deliver(ctx bazaar.Context, store bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	return r.Handler(bazaar.GetPath(tx)).Deliver(ctx, store, tx)
}

type noSuchPathHandler struct {
	path string
}

var _ bazaar.Handler = noSuchPathHandler{}

func (h noSuchPathHandler) Check(bazaar.Context, bazaar.KVStore, bazaar.Tx) (*bazaar.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for %q", h.path)
}

func (h noSuchPathHandler) Deliver(bazaar.Context, bazaar.KVStore, bazaar.Tx) (*bazaar.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for %q", h.path)
}
