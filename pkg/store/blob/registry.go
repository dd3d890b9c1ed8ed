package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Store from the storage configuration.
type Factory func(ctx context.Context, cfg Config) (Store, error)

// Registry maps backend names to factories.
type Registry interface {
	Register(backend string, factory Factory) error
	Create(ctx context.Context, cfg Config) (Store, error)
	Backends() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry(factories map[string]Factory) Registry {
	r := &registry{factories: make(map[string]Factory, len(factories))}
	for name, f := range factories {
		r.factories[name] = f
	}
	return r
}

func (r *registry) Register(backend string, factory Factory) error {
	if backend == "" {
		return fmt.Errorf("backend name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[backend]; exists {
		return fmt.Errorf("backend %q is already registered", backend)
	}
	r.factories[backend] = factory
	return nil
}

func (r *registry) Create(ctx context.Context, cfg Config) (Store, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Backend]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("storage backend %q is not registered (known: %v)", cfg.Backend, r.Backends())
	}
	return factory(ctx, cfg)
}

func (r *registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backends := make([]string, 0, len(r.factories))
	for name := range r.factories {
		backends = append(backends, name)
	}
	sort.Strings(backends)
	return backends
}
