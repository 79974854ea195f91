package clinic

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client)
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	dir := NewDirectory(7, []Record{sunrise()})
	require.NoError(t, store.Save(ctx, dir))

	snap, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(7), snap.Version)
	assert.Equal(t, sunrise(), snap.Clinics[0])

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreLoadCorruptSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(snapshotKey, "{not json"))

	_, _, err := NewStore(client).Load(context.Background())
	assert.Error(t, err)
}
