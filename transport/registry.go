package transport

import (
	"fmt"
	"sync"
)

// Registry is the concurrent collection of active links, keyed by link id.
// A single mutex guards every operation; it is held only for the duration of
// the map access, never across a network call, so links obtained from a
// Snapshot can post and fetch concurrently without serializing on the
// registry.
type Registry struct {
	mu    sync.Mutex
	links map[string]*Link
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{links: make(map[string]*Link)}
}

// Add registers link under its id, replacing any previous entry.
func (r *Registry) Add(link *Link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[link.ID()] = link
}

// Get returns the link registered under id. Looking up an unknown id is an
// error; callers only reference links they created or loaded.
func (r *Registry) Get(id string) (*Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[id]
	if !ok {
		return nil, fmt.Errorf("link %q: %w", id, ErrLinkNotFound)
	}
	return link, nil
}

// Remove deletes and returns the link registered under id, or nil if absent.
func (r *Registry) Remove(id string) *Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	link := r.links[id]
	delete(r.links, id)
	return link
}

// Size returns the number of registered links.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Snapshot returns a point-in-time copy of the registry's entries. The
// returned map shares link references with the registry, so callers may
// operate on the links after the registry lock is released.
func (r *Registry) Snapshot() map[string]*Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Link, len(r.links))
	for id, link := range r.links {
		out[id] = link
	}
	return out
}
