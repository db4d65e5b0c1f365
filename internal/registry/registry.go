// Package registry owns the identity-to-connection mapping. It is the
// single source of truth for "is this user connected here" and the only
// component allowed to mutate the mapping; routing and presence read
// through its lookup and snapshot operations.
package registry

import "sync"

// Handle is a live, push-capable connection for one user.
type Handle interface {
	// Push delivers an event to the connection. Implementations must
	// not block: a stalled peer is the transport's problem, not the
	// registry's.
	Push(eventType string, payload any) error

	// Close tears down the underlying transport.
	Close() error
}

// Registry maps a user identity (name) to at most one live handle.
// All operations are safe for concurrent use; lookups never observe a
// partially-updated mapping.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func New() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register inserts or replaces the handle for an identity and returns
// the prior handle, if any. The prior handle is orphaned, not closed;
// shutting down its transport is the caller's concern.
func (r *Registry) Register(identity string, h Handle) (prev Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.handles[identity]
	r.handles[identity] = h
	return prev
}

// Unregister removes the mapping only if the stored handle is the
// caller's handle. A delayed disconnect from a superseded connection
// must not evict the connection that replaced it.
func (r *Registry) Unregister(identity string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[identity] != h {
		return false
	}
	delete(r.handles, identity)
	return true
}

// Lookup returns the live handle for an identity, if one exists.
func (r *Registry) Lookup(identity string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[identity]
	return h, ok
}

// Online reports whether an identity has a live handle.
func (r *Registry) Online(identity string) bool {
	_, ok := r.Lookup(identity)
	return ok
}

// Snapshot returns a copy of all current handles so callers can fan
// out without holding the lock.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	return handles
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
