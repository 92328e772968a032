// Package counter keeps per-resource visit counts shared by all connection workers.
package counter

import (
	"maps"
	"sync"
	"time"
)

// Registry maps a resource key (its canonical path) to a visit count.
//
// Counts start at zero, are created on first visit and only ever grow.
// Every read-modify-write happens under mu, held for the whole sequence.
type Registry struct {
	mu     sync.Mutex
	counts map[string]uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]uint64)}
}

// RecordVisit increments the count for key and returns the new value.
func (r *Registry) RecordVisit(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[key]++
	return r.counts[key]
}

// CurrentCount returns the count for key, or 0 if it was never visited.
func (r *Registry) CurrentCount(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

// RecordVisitRacy is the broken version of RecordVisit, kept to demonstrate lost updates.
//
// It reads the count, releases the lock, waits for pause and then writes the
// stale value plus one. Concurrent callers overwrite each other, so the final
// count ends up below the number of calls. It is never used to serve requests.
func (r *Registry) RecordVisitRacy(key string, pause time.Duration) uint64 {
	r.mu.Lock()
	seen := r.counts[key]
	r.mu.Unlock()

	time.Sleep(pause)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key] = seen + 1
	return seen + 1
}

// Len returns the number of distinct keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counts)
}

// Snapshot returns a copy of all counts.
func (r *Registry) Snapshot() map[string]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.counts)
}

// Restore merges counts into the registry, keeping the larger value per key
// so that a restore never moves a count backwards.
func (r *Registry) Restore(counts map[string]uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, n := range counts {
		if n > r.counts[key] {
			r.counts[key] = n
		}
	}
}
