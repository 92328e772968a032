package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerCounterStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerCounterStore(ctx, BadgerCounterStoreConfig{DBPath: dir})
	require.NoError(t, err)

	counts, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	want := map[string]uint64{
		"/srv/index.html":     42,
		"/srv/docs":           3,
		"/srv/with:colon.txt": 1,
	}
	require.NoError(t, s.Save(ctx, want))
	require.NoError(t, s.Close())

	s, err = NewBadgerCounterStore(ctx, BadgerCounterStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBadgerCounterStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()

	s, err := NewBadgerCounterStore(ctx, BadgerCounterStoreConfig{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, map[string]uint64{"/a": 1, "/b": 1}))
	require.NoError(t, s.Save(ctx, map[string]uint64{"/a": 9}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"/a": 9, "/b": 1}, got)
}

func TestBadgerCounterStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerCounterStore(context.Background(), BadgerCounterStoreConfig{})
	assert.Error(t, err)
}
