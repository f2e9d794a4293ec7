package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/internal/keylock"
	"github.com/hupe1980/storymesh/logging"
	"github.com/hupe1980/storymesh/model"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// TTL evicts orchestrators idle for longer; zero keeps them forever.
	TTL    time.Duration
	Logger logging.Logger
	Now    func() time.Time
	// Orchestrator options applied to every orchestrator the registry creates.
	Orchestrator []func(o *Options)
}

type registryEntry struct {
	orch     *Orchestrator
	lastUsed time.Time
}

// Registry owns the live orchestrators, at most one per story id. It is safe
// for concurrent use.
type Registry struct {
	model  model.Model
	store  core.Store
	ttl    time.Duration
	now    func() time.Time
	logger logging.Logger
	orchFn []func(o *Options)

	locks keylock.Locker

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry creates an empty registry whose orchestrators use m and store.
func NewRegistry(m model.Model, store core.Store, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		TTL:    time.Hour,
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		model:   m,
		store:   store,
		ttl:     opts.TTL,
		now:     opts.Now,
		logger:  logging.OrNoOp(opts.Logger),
		orchFn:  opts.Orchestrator,
		entries: map[string]*registryEntry{},
	}
}

// GetOrCreate returns the initialized orchestrator of storyID, creating and
// initializing it on first use. Concurrent calls for the same id share one
// instance. A story that does not exist yields a NotFoundError and nothing is
// cached.
func (r *Registry) GetOrCreate(ctx context.Context, storyID string) (*Orchestrator, error) {
	unlock, err := r.locks.Lock(ctx, storyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := r.now()
	r.mu.Lock()
	r.sweep(now)
	if e, ok := r.entries[storyID]; ok {
		e.lastUsed = now
		r.mu.Unlock()
		return e.orch, nil
	}
	r.mu.Unlock()

	orch := New(storyID, r.model, r.store, r.orchFn...)
	if err := orch.Initialize(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[storyID] = &registryEntry{orch: orch, lastUsed: now}
	r.mu.Unlock()

	r.logger.Debug("Orchestrator created", "story_id", storyID)
	return orch, nil
}

// Get returns the cached orchestrator of storyID without creating one.
func (r *Registry) Get(storyID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[storyID]
	if !ok || r.expired(e, r.now()) {
		return nil, false
	}
	return e.orch, true
}

// Evict drops the orchestrator of storyID and reports whether one was cached.
// The next GetOrCreate rebuilds it from the store.
func (r *Registry) Evict(storyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[storyID]
	delete(r.entries, storyID)
	return ok
}

// Sweep drops every idle orchestrator and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(r.now())
}

// Clear drops every orchestrator.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[string]*registryEntry{}
}

// Len returns the number of cached orchestrators.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) expired(e *registryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastUsed) > r.ttl
}

// sweep requires r.mu.
func (r *Registry) sweep(now time.Time) int {
	removed := 0
	for id, e := range r.entries {
		if r.expired(e, now) {
			delete(r.entries, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("Evicted idle orchestrators", "count", removed)
	}
	return removed
}
