// Package cancellation tracks in-flight effects by identifier.
//
// A Registry maps an effect id to the set of handles that can stop the
// subscriptions running under that id. Every id present in the registry has at
// least one handle; removing the last handle removes the id.
//
// Thread-safety: all methods are safe for concurrent use. Handle callbacks are
// always invoked after the registry lock is released, so a callback may call
// back into the same registry.
package cancellation

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Handle cancels one subscription.
//
// Cancel is idempotent: the callback runs at most once no matter how many
// times Cancel is called or from how many goroutines.
type Handle struct {
	once     sync.Once
	fn       func()
	canceled atomic.Bool
}

// NewHandle creates a handle that runs fn on first cancellation.
// A nil fn is allowed and produces a handle that only records cancellation.
func NewHandle(fn func()) *Handle {
	return &Handle{fn: fn}
}

// Cancel marks the handle canceled and runs its callback once.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.canceled.Store(true)
		if h.fn != nil {
			h.fn()
		}
	})
}

// Canceled reports whether Cancel has been called.
func (h *Handle) Canceled() bool {
	return h.canceled.Load()
}

// Registry is a synchronized map from effect id to active handles.
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[*Handle]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]map[*Handle]struct{}),
	}
}

// Insert adds h under id. Nil handles are ignored.
func (r *Registry) Insert(id string, h *Handle) {
	if h == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.entries[id]
	if !ok {
		set = make(map[*Handle]struct{}, 1)
		r.entries[id] = set
	}
	set[h] = struct{}{}
}

// Remove cancels h and removes it from id.
//
// Returns true if h was registered under id. When h was the last handle for id,
// the id is purged and any sibling that raced in between is canceled with it.
// Removing an unknown handle or id is a no-op.
func (r *Registry) Remove(id string, h *Handle) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	set, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, found := set[h]; !found {
		r.mu.Unlock()
		return false
	}
	delete(set, h)

	var siblings []*Handle
	if len(set) == 0 {
		delete(r.entries, id)
	} else if allCanceled(set) {
		// Only dead handles remain: the group is over.
		siblings = collect(set)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	h.Cancel()
	for _, s := range siblings {
		s.Cancel()
	}
	return true
}

// Cancel cancels every handle registered under id and removes the id.
// Reports whether id was registered; canceling an absent id is a no-op.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	set, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	for _, h := range collect(set) {
		h.Cancel()
	}
	return true
}

// CancelAll cancels every registered handle and empties the registry.
// Returns the ids that were canceled, sorted.
func (r *Registry) CancelAll() []string {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]map[*Handle]struct{})
	r.mu.Unlock()

	ids := make([]string, 0, len(entries))
	for id, set := range entries {
		ids = append(ids, id)
		for _, h := range collect(set) {
			h.Cancel()
		}
	}
	sort.Strings(ids)
	return ids
}

// Contains reports whether id has at least one registered handle.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Handles returns the number of handles registered under id.
func (r *Registry) Handles(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries[id])
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collect(set map[*Handle]struct{}) []*Handle {
	handles := make([]*Handle, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	return handles
}

func allCanceled(set map[*Handle]struct{}) bool {
	for h := range set {
		if !h.Canceled() {
			return false
		}
	}
	return true
}
