package payment

import "sync"

// Registry routes return-URL hits to the live reconciler for a payment
// attempt. One booking has at most one live reconciler; registering a new
// attempt for the same key supersedes the old one.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]*Reconciler
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]*Reconciler)}
}

// Register binds the reconciler under every non-empty key (session id,
// booking id, transfer description).
func (r *Registry) Register(rec *Reconciler, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if k != "" {
			r.byKey[k] = rec
		}
	}
}

// Lookup returns the reconciler bound to the first matching key.
func (r *Registry) Lookup(keys ...string) (*Reconciler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range keys {
		if k == "" {
			continue
		}
		if rec, ok := r.byKey[k]; ok {
			return rec, true
		}
	}
	return nil, false
}

// Remove unbinds the given keys.
func (r *Registry) Remove(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.byKey, k)
	}
}
