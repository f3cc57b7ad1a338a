package session

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/dittosession/pkg/attributes"
)

// registry tracks the sessions open on this node and shares their name
// tables between concurrent handles.
type registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	loads   singleflight.Group
}

type registryEntry struct {
	names *attributes.Names
	refs  int
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*registryEntry)}
}

// acquire returns the shared name table of id, loading it with load when no
// handle of the session is open. Every successful acquire must be paired
// with a release.
func (r *registry) acquire(ctx context.Context, id string, load func(context.Context) (*attributes.Names, error)) (*attributes.Names, error) {
	if names, ok := r.retain(id); ok {
		return names, nil
	}

	v, err, _ := r.loads.Do(id, func() (any, error) {
		return load(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.refs++
		return e.names, nil
	}
	names := v.(*attributes.Names)
	r.entries[id] = &registryEntry{names: names, refs: 1}
	return names, nil
}

func (r *registry) retain(id string) (*attributes.Names, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.refs++
	return e.names, true
}

// release drops one reference to names; the entry is evicted with the last
// one. A table that was evicted in the meantime is ignored.
func (r *registry) release(id string, names *attributes.Names) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.names != names {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, id)
	}
}

// evict forgets id immediately. Open handles keep their table.
func (r *registry) evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	r.loads.Forget(id)
}

func (r *registry) active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

func (r *registry) ids() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
