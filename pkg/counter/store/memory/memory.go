// Package memory is an in-process counter store. Snapshots survive only as
// long as the process; it is the default when persistence is not configured.
package memory

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps the last saved snapshot in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]uint64)}
}

func (s *MemoryStore) Load(ctx context.Context) (map[string]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.counts), nil
}

func (s *MemoryStore) Save(ctx context.Context, counts map[string]uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.counts, counts)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
