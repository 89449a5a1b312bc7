package redisinfo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	return NewFromClient(client, time.Hour)
}

func TestStoreSetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Prepare(ctx))

	length := int64(5)
	info := upload.FileInfo{ID: "abc", Length: &length}

	require.NoError(t, store.Set(ctx, info, true))

	err := store.Set(ctx, info, true)
	require.Error(t, err)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, info.ID, got.ID)

	require.NoError(t, store.Remove(ctx, "abc"))

	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, upload.ErrNotFound)

	err = store.Remove(ctx, "abc")
	require.ErrorIs(t, err, upload.ErrNotFound)
}
