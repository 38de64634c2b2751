// Package latest provides "last issued wins" coordination for overlapping
// asynchronous queries. Each logical query key carries a monotonically
// increasing sequence; a response commits only while its ticket is still
// the newest one issued for that key, otherwise it is discarded silently.
package latest

import "sync"

// Group tracks the newest ticket per key and caches the last committed
// value, so views re-entering a filter can render the previous result while
// a fresh query is in flight.
type Group[V any] struct {
	mu     sync.Mutex
	seqs   map[string]uint64
	cached map[string]V
}

// NewGroup builds an empty group.
func NewGroup[V any]() *Group[V] {
	return &Group[V]{
		seqs:   make(map[string]uint64),
		cached: make(map[string]V),
	}
}

// Ticket represents one issued query for a key.
type Ticket[V any] struct {
	group *Group[V]
	key   string
	seq   uint64
}

// Begin registers a new query for key, superseding any ticket issued
// earlier for the same key.
func (g *Group[V]) Begin(key string) Ticket[V] {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[key]++
	return Ticket[V]{group: g, key: key, seq: g.seqs[key]}
}

// Commit stores value if this ticket is still the newest for its key and
// reports whether the value was applied.
func (t Ticket[V]) Commit(value V) bool {
	g := t.group
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seqs[t.key] != t.seq {
		return false
	}
	g.cached[t.key] = value
	return true
}

// Live reports whether the ticket is still the newest for its key.
func (t Ticket[V]) Live() bool {
	g := t.group
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seqs[t.key] == t.seq
}

// Cached returns the last committed value for key, if any.
func (g *Group[V]) Cached(key string) (V, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.cached[key]
	return v, ok
}

// Forget drops the cached value and sequence for key.
func (g *Group[V]) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cached, key)
	delete(g.seqs, key)
}
