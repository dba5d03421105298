// Package registry maps function names to handlers. The mapping is mutable
// only before the server enters its serving state; Freeze makes it
// read-only, after which lookups take no lock.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Handler implements one remote-callable operation. Args are decoded JSON
// values; the handler validates arity and types itself and returns a
// descriptive error when they are unsuitable.
type Handler func(ctx context.Context, args []any) (any, error)

// ErrServing is returned by Register once Freeze has been called: the
// registry is read-only for the remainder of the process.
var ErrServing = errors.New("registry: registration rejected, server already serving")

// ErrEmptyName is returned by Register for an empty function name.
var ErrEmptyName = errors.New("registry: function name must be non-empty")

// Registry is the name→handler mapping consulted by the dispatcher.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]Handler
	frozen   atomic.Bool
	log      zerolog.Logger
}

// New creates an empty registry. Duplicate-registration warnings go to log.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		log:      log,
	}
}

// Register adds a handler under name. Registering after Freeze fails with
// ErrServing. A duplicate name is a no-op with a warning: the first
// registration wins. This is the documented contract, surprising as it is;
// callers wanting strictness should check Lookup first.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrServing
	}
	if _, exists := r.handlers[name]; exists {
		r.log.Warn().Str("function", name).Msg("function already registered, keeping first registration")
		return nil
	}
	r.handlers[name] = h
	r.log.Info().Str("function", name).Msg("registered function")
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	// Frozen means no writes can occur, so plain map reads are safe.
	if r.frozen.Load() {
		h, ok := r.handlers[name]
		return h, ok
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Freeze transitions the registry to read-only. Called at the
// Listening→Serving transition; idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.sortedNames()
	}
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
