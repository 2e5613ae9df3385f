package engine

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithTickerFactory sets how each new instance gets its render ticker.
func WithTickerFactory(fn func() Ticker) RegistryOption {
	return func(r *Registry) { r.newTicker = fn }
}

// WithInstanceOptions appends options applied to every instance the
// registry creates.
func WithInstanceOptions(opts ...Option) RegistryOption {
	return func(r *Registry) { r.instanceOpts = append(r.instanceOpts, opts...) }
}

// Registry owns the running engine instances, one per dashboard panel.
type Registry struct {
	defaults     Config
	logger       *slog.Logger
	newTicker    func() Ticker
	instanceOpts []Option

	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry creates an empty registry. defaults is the base configuration
// that per-instance overrides are merged onto.
func NewRegistry(defaults Config, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		defaults:  defaults,
		logger:    logger,
		newTicker: func() Ticker { return NewCronTicker() },
		instances: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts an instance for id with overrides merged onto the registry
// defaults. A failure is logged and returned; no instance is registered.
func (r *Registry) Create(id string, overrides Config) (*Instance, error) {
	if strings.TrimSpace(id) == "" {
		r.logger.Warn("engine instance not created", "reason", "blank id")
		return nil, ErrInvalidInstance
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; ok {
		r.logger.Warn("engine instance not created", "instance_id", id, "reason", "duplicate id")
		return nil, ErrInstanceExists
	}

	opts := append([]Option{WithLogger(r.logger), WithTicker(r.newTicker())}, r.instanceOpts...)
	opts = append(opts, func(i *Instance) { i.onClose = func() { r.forget(id) } })
	inst, err := NewInstance(id, r.defaults.Merge(overrides), opts...)
	if err != nil {
		r.logger.Warn("engine instance not created", "instance_id", id, "error", err)
		return nil, err
	}
	r.instances[id] = inst
	return inst, nil
}

// Get returns the live instance for id.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return inst, nil
}

// List returns the registered instance ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Destroy stops and unregisters the instance for id.
func (r *Registry) Destroy(id string) error {
	inst, err := r.Get(id)
	if err != nil {
		return err
	}
	inst.Destroy()
	return nil
}

// DestroyAll stops every instance. Used on shutdown.
func (r *Registry) DestroyAll() {
	r.mu.RLock()
	all := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		all = append(all, inst)
	}
	r.mu.RUnlock()
	for _, inst := range all {
		inst.Destroy()
	}
}

func (r *Registry) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, id)
}
