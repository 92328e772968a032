// Package badger persists visit counts in a BadgerDB database.
package badger

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Key layout
//
//	Prefix  Key format   Value
//	"c:"    c:<path>     uint64, big-endian
//
// One key per counted resource. Load is a single prefix scan.
const prefixCount = "c:"

func keyCount(path string) []byte {
	return []byte(prefixCount + path)
}

// BadgerCounterStoreConfig configures a BadgerCounterStore.
type BadgerCounterStoreConfig struct {
	// DBPath is the directory holding the database files. Created if missing.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs badger without touching disk. Useful for tests.
	InMemory bool `mapstructure:"in_memory"`

	// BadgerOptions overrides every other option when set.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// BadgerCounterStore stores each count under its own key.
type BadgerCounterStore struct {
	db *badger.DB
}

// NewBadgerCounterStore opens (or creates) the database described by config.
func NewBadgerCounterStore(ctx context.Context, config BadgerCounterStoreConfig) (*BadgerCounterStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	switch {
	case config.BadgerOptions != nil:
		opts = *config.BadgerOptions
	case config.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	default:
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger counter store: db_path is required")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerCounterStore{db: db}, nil
}

// Load scans every count key.
func (s *BadgerCounterStore) Load(ctx context.Context) (map[string]uint64, error) {
	counts := make(map[string]uint64)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCount)

		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if n%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			item := it.Item()
			path := string(item.Key()[len(prefixCount):])

			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("count for %q: want 8 bytes, got %d", path, len(val))
				}
				counts[path] = binary.BigEndian.Uint64(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load counts: %w", err)
	}

	return counts, nil
}

// Save writes every count in one batch.
func (s *BadgerCounterStore) Save(ctx context.Context, counts map[string]uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()

	for path, n := range counts {
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, n)
		if err := wb.Set(keyCount(path), val); err != nil {
			wb.Cancel()
			return fmt.Errorf("save count for %q: %w", path, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("save counts: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerCounterStore) Close() error {
	return s.db.Close()
}
