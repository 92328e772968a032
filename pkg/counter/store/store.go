// Package store persists visit-count snapshots between server runs.
//
// A Store only ever sees whole snapshots: the live counts stay in a
// counter.Registry and are copied out for Save and merged back after Load.
// Implementations live in the memory, badger and s3 subpackages.
package store

import "context"

// Store loads and saves snapshots of visit counts keyed by canonical path.
//
// Implementations must be safe for concurrent use. Save replaces the
// previously stored counts for every key in the snapshot; keys absent from
// the snapshot may be left as they were.
type Store interface {
	// Load returns the stored counts. An empty store returns an empty map, not an error.
	Load(ctx context.Context) (map[string]uint64, error)

	// Save persists counts.
	Save(ctx context.Context, counts map[string]uint64) error

	// Close releases the store's resources. The store is unusable afterwards.
	Close() error
}
