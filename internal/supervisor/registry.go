package supervisor

import "sync"

// Registry is the ordered record of every child spawned during a run:
// insertion order is spawn order, and the registry is the single source of
// truth for what cleanup must terminate. The mutex only matters on the
// interrupt path, where cleanup runs concurrently with a spawn in flight.
type Registry struct {
	mu      sync.Mutex
	handles []*Handle
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Append(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles = append(r.handles, h)
}

// Drain returns the registered handles in insertion order and empties the
// registry, so a second drain observes nothing. This is what makes cleanup
// idempotent: a handle is never handed out twice.
func (r *Registry) Drain() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := r.handles
	r.handles = nil

	return handles
}

// Handles returns a snapshot of the registered handles in insertion order.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*Handle(nil), r.handles...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handles)
}
